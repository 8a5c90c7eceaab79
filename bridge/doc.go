// Package bridge liga eventos da AWS ao Cloud Code do Parse.
//
// APIGatewayHandler expõe Cloud Functions atrás do API Gateway: a rota
// /functions/{name} (ou o path parameter "function") escolhe a função e o
// corpo JSON vira os parâmetros. SQSHandler processa lotes de mensagens
// entregues pelo Lambda, chamando uma função ou disparando um job por
// mensagem e reportando falhas parciais. Poller faz o mesmo fora do Lambda,
// lendo a fila com long polling.
//
// Exemplo:
//
//	client, _ := parse.New(cfg.Parse)
//	h := bridge.NewSQSHandler(client, bridge.Target{Function: "ingest"})
//	lambda.Start(h.Handle)
package bridge
