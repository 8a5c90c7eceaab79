// Package parse é o cliente da API REST do Parse Server.
//
// Um Client concentra configuração, transporte e estado de sessão. Não há
// estado global: duas instâncias podem manter sessões independentes no
// mesmo processo.
//
// Recursos cobertos:
//   - Objetos: Save (POST/PUT conforme objectId), Fetch, GetObject, Delete e
//     operações atômicas de campo (Increment, Add, AddUnique, Remove, Unset).
//   - Usuários: Signup, Login, Logout, Become, Me e pedidos de e-mail.
//   - Consultas: Query devolve um query.Query[*Object] com Find, First, Get,
//     Count, Distinct, Aggregate e Each.
//   - Cloud Code (Run, RunJob), arquivos, schemas, papéis, sessões,
//     instalações, analytics, /config e /batch.
//
// Erros são sempre *parseerr.Error; use parseerr.KindOf e parseerr.CodeOf
// para decidir o que fazer.
//
// Exemplo:
//
//	client, err := parse.New(parse.Config{
//		ServerURL:     "http://localhost:1337/parse",
//		ApplicationID: "myAppId",
//		RESTAPIKey:    "restKey",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	score := parse.NewObject("GameScore")
//	_ = score.Set("score", 1337)
//	_ = score.Set("playerName", "Sean Plott")
//	if err := client.Save(ctx, score); err != nil {
//		log.Fatal(err)
//	}
//
//	top, err := client.Query("GameScore").
//		GreaterThan("score", 1000).
//		OrderByDescending("score").
//		Limit(10).
//		Find(ctx)
package parse
