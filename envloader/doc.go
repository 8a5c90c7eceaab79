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
// Package envloader carrega variáveis de ambiente em campos de struct
// usando as tags `env`, `envDefault` e `required`.
//
// É a camada de sobreposição da configuração do cliente Parse: os valores
// lidos de um arquivo YAML permanecem quando a variável não está definida, e
// envDefault só preenche campos ainda vazios.
//
// Tipos suportados: string, inteiros, uint, bool, float, time.Duration e
// []string (separado por vírgulas), além de structs aninhadas e ponteiros
// para struct.
//
// Exemplo:
//
//	type Config struct {
//		ServerURL string        `env:"PARSE_SERVER_URL" required:"true"`
//		Timeout   time.Duration `env:"PARSE_TIMEOUT" envDefault:"30s"`
//	}
//
//	var cfg Config
//	if err := envloader.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
// Erros são tipados: InvalidConfigError, FieldError, UnsupportedTypeError e
// MissingRequiredError.
package envloader
