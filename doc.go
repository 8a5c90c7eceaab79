// Package parsetoolkit reúne um cliente Go para a API REST do Parse Server e
// as ferramentas construídas sobre ele.
//
// Visão Geral:
// O núcleo é o pacote parse, que concentra configuração, transporte HTTP e
// estado de sessão num Client sem estado global. Em volta dele ficam os
// binários e adaptadores que o projeto usa em produção.
//
// Sub-Pacotes Principais:
//
// 1. parse, query, value, parseerr:
//   - Objetos, usuários, consultas, Cloud Code, arquivos, schemas, papéis,
//     sessões, instalações, analytics, /config e /batch.
//   - value modela o JSON do Parse (Date, Pointer, GeoPoint, File, Relation
//     e operações __op); parseerr classifica todo erro por Kind e código.
//
// 2. sessionstore:
//   - Persiste o snapshot de sessão em memória, Redis ou DynamoDB e o
//     restaura em execuções seguintes.
//
// 3. bridge e cmd/bridge:
//   - Encaminha eventos do API Gateway e mensagens SQS para Cloud Functions
//     e jobs, no Lambda ou consumindo a fila diretamente.
//
// 4. cmd/parsectl:
//   - Linha de comando para consultar e alterar dados, rodar funções,
//     enviar arquivos (locais ou do S3) e administrar schemas.
//
// 5. tools/emulator e cmd/emulator:
//   - Servidor em memória compatível com o subconjunto da API usado pelo
//     cliente, para testes e desenvolvimento local.
//
// 6. pkg/config, pkg/logger, pkg/metrics, pkg/secrets, pkg/auth:
//   - Arquivo YAML com overrides por ambiente e referências ${ssm.x} e
//     ${secret.x}, zerolog, métricas Datadog e tokens OAuth2 para gateways.
//
// Exemplo de Início Rápido:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		"github.com/raywall/parse-toolkit/envloader"
//		"github.com/raywall/parse-toolkit/parse"
//	)
//
//	func main() {
//		// PARSE_SERVER_URL, PARSE_APPLICATION_ID, PARSE_REST_API_KEY...
//		var cfg parse.Config
//		if err := envloader.Load(&cfg); err != nil {
//			log.Fatalf("config: %v", err)
//		}
//		client, err := parse.New(cfg)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		score := parse.NewObject("GameScore")
//		_ = score.Set("score", 1337)
//		if err := client.Save(context.Background(), score); err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("objectId: %s", score.ObjectID)
//	}
package parsetoolkit
