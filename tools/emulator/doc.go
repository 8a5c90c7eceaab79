// Copyright 2025 Raywall Malheiros de Souza
// Licensed under the Mozilla Public License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.mozilla.org/en-US/MPL/2.0/
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Package emulator fornece um Parse Server em memória, configurável via JSON,
// para desenvolvimento local e testes de integração do cliente sem depender
// de um servidor real.
//
// Visão Geral:
// O emulador responde à mesma API REST do Parse Server sob um mount path
// (padrão /parse): objetos e consultas em /classes, usuários e sessões,
// Cloud Code, arquivos, schemas, /config, /aggregate, /batch e analytics.
// Os dados vivem apenas em memória e somem quando o processo termina.
//
// Funcionalidades Principais:
//   - Consultas: where com $lt/$gt/$in/$nin/$all/$exists/$regex/$text,
//     $or/$and, $relatedTo, order, skip, limit, keys, include e count.
//   - Operações de campo: Increment, Add, AddUnique, Remove, Delete e
//     relações (AddRelation/RemoveRelation).
//   - Usuários: signup, login, logout, /users/me e sessões com token.
//   - Cloud Code: funções e jobs registrados em Go (Define, DefineJob) ou
//     respostas fixas vindas do JSON.
//   - Rotas sobrescritas: respostas estáticas para simular falhas, como
//     HTTP 200 com envelope de erro ou corpo que não é JSON.
//
// Não há enforcement de ACL nem de class-level permissions; apenas a master
// key é verificada nos endpoints que a exigem.
//
// Exemplo de Configuração (emulator.json):
//
//	{
//	  "port": 1337,
//	  "mount_path": "/parse",
//	  "application_id": "myAppId",
//	  "master_key": "myMasterKey",
//	  "classes": {
//	    "GameScore": [{ "score": 1337, "playerName": "Sean Plott" }]
//	  },
//	  "functions": {
//	    "hello": { "status": 200, "body": { "result": "Hello world!" } }
//	  },
//	  "routes": [
//	    {
//	      "path": "/classes/Broken",
//	      "method": "GET",
//	      "response": { "status": 200, "body": { "code": 255, "error": "boom" } }
//	    }
//	  ]
//	}
//
// Exemplo de Uso em Testes:
//
//	srv, _ := emulator.New(config.Config{ApplicationID: "app", MasterKey: "master"})
//	srv.Define("sum", func(ctx context.Context, req emulator.FunctionRequest) (any, error) {
//	    return req.Params["a"].(float64) + req.Params["b"].(float64), nil
//	})
//	ts := httptest.NewServer(srv)
//	defer ts.Close()
//
//	client, _ := parse.New(parse.Config{
//	    ServerURL:     ts.URL + "/parse",
//	    ApplicationID: "app",
//	    MasterKey:     "master",
//	})
package emulator
