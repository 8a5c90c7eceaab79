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

// Package parseerr define a taxonomia de erros do cliente Parse.
//
// Todo erro devolvido pelos pacotes value, query e parse é (ou encapsula) um
// *Error. O chamador decide o que fazer ramificando primeiro pelo Kind e depois
// pelo código numérico, nunca pelo texto da mensagem:
//
//	if parseerr.IsCode(err, parseerr.InvalidSessionToken) {
//		// refazer login
//	}
package parseerr

import (
	"errors"
	"fmt"
)

// Kind identifica a classe de uma falha.
type Kind int

const (
	// Unknown é usado para erros que não vieram deste módulo.
	Unknown Kind = iota
	// Transport indica falha antes de qualquer resposta (DNS, conexão, timeout, cancelamento).
	Transport
	// HTTPStatus indica resposta não-2xx sem envelope Parse reconhecível.
	HTTPStatus
	// ParseCode indica um envelope {"code": n, "error": "..."} devolvido pelo servidor.
	ParseCode
	// Decode indica corpo inválido ou com formato diferente do esperado.
	Decode
	// Precondition indica violação de invariante local; nunca chega à rede.
	Precondition
	// Configuration indica credenciais ou URL ausentes/inválidas na construção do cliente.
	Configuration
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "Transport"
	case HTTPStatus:
		return "HTTPStatus"
	case ParseCode:
		return "ParseCode"
	case Decode:
		return "Decode"
	case Precondition:
		return "Precondition"
	case Configuration:
		return "Configuration"
	default:
		return "Unknown"
	}
}

// Error é o erro estruturado do cliente.
type Error struct {
	Kind Kind
	// Status é o status HTTP quando houve resposta (0 caso contrário).
	Status int
	// Code é o código Parse quando Kind == ParseCode.
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ParseCode:
		return fmt.Sprintf("parse: code %d: %s", e.Code, e.Message)
	case HTTPStatus:
		if e.Message != "" {
			return fmt.Sprintf("parse: http status %d: %s", e.Status, e.Message)
		}
		return fmt.Sprintf("parse: http status %d", e.Status)
	}
	msg := fmt.Sprintf("parse: %s", e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is permite comparar com um *Error "modelo": errors.Is(err, &Error{Kind: ParseCode, Code: 101}).
// Campos zerados no alvo são ignorados.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != Unknown && t.Kind != e.Kind {
		return false
	}
	if t.Code != 0 && t.Code != e.Code {
		return false
	}
	if t.Status != 0 && t.Status != e.Status {
		return false
	}
	return true
}

// Newf cria um erro do tipo informado com mensagem formatada.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap encapsula err sob o kind informado.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NewTransport(err error) *Error {
	return &Error{Kind: Transport, Err: err}
}

func NewHTTPStatus(status int, body string) *Error {
	return &Error{Kind: HTTPStatus, Status: status, Message: body}
}

func NewParseCode(status, code int, message string) *Error {
	return &Error{Kind: ParseCode, Status: status, Code: code, Message: message}
}

func NewDecode(err error, message string) *Error {
	return &Error{Kind: Decode, Message: message, Err: err}
}

// NewPrecondition encapsula um sentinel local, preservando errors.Is(err, sentinel).
func NewPrecondition(err error) *Error {
	return &Error{Kind: Precondition, Err: err}
}

func NewConfiguration(message string) *Error {
	return &Error{Kind: Configuration, Message: message}
}

// KindOf devolve o Kind do primeiro *Error na cadeia de err.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return Unknown
}

// CodeOf devolve o código Parse de err, ou 0 quando err não for ParseCode.
func CodeOf(err error) int {
	var pe *Error
	if errors.As(err, &pe) && pe.Kind == ParseCode {
		return pe.Code
	}
	return 0
}

// IsKind informa se err pertence ao kind informado.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsCode informa se err é um ParseCode com o código informado.
func IsCode(err error, code int) bool {
	return err != nil && CodeOf(err) == code
}
