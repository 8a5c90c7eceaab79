package types

// Response para status e body
type Response struct {
	Status int         `json:"status"`
	Body   interface{} `json:"body,omitempty"`
}

// Fixture é um objeto pré-carregado. Campos ausentes (objectId, datas)
// são preenchidos pelo emulador.
type Fixture map[string]interface{}

// ErrorBody é o envelope de erro do Parse Server.
type ErrorBody struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}
