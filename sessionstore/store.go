// Package sessionstore persiste a sessão de um parse.Client entre execuções
// (CLI, funções Lambda) em memória, Redis ou DynamoDB.
package sessionstore

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/raywall/parse-toolkit/parse"
	"github.com/raywall/parse-toolkit/parseerr"
)

// ErrNotFound – nenhuma sessão guardada para a chave.
var ErrNotFound = errors.New("sessionstore: session not found")

// Record é o que fica persistido: o token e a identificação do usuário.
// Os demais campos do usuário são recarregados com Become.
type Record struct {
	Key      string    `json:"key" dynamodbav:"key"`
	Token    string    `json:"token" dynamodbav:"token"`
	UserID   string    `json:"userId" dynamodbav:"user_id"`
	Username string    `json:"username" dynamodbav:"username"`
	SavedAt  time.Time `json:"savedAt" dynamodbav:"saved_at"`
}

// Store é o contrato comum aos backends.
type Store interface {
	Load(ctx context.Context, key string) (*Record, error)
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context, key string) error
}

// RecordFrom converte um snapshot em Record.
func RecordFrom(key string, snap parse.SessionSnapshot, now time.Time) Record {
	rec := Record{Key: key, Token: snap.Token, SavedAt: now.UTC()}
	if snap.User != nil {
		rec.UserID = snap.User.ObjectID
		rec.Username = snap.User.Username()
	}
	return rec
}

// Persist devolve um parse.SessionListener que grava cada login e apaga o
// registro no logout. Falhas do backend são apenas registradas no log: a
// sessão em memória continua válida.
func Persist(ctx context.Context, store Store, key string, log zerolog.Logger) parse.SessionListener {
	return func(snap parse.SessionSnapshot) {
		var err error
		if snap.Token == "" {
			err = store.Delete(ctx, key)
			if errors.Is(err, ErrNotFound) {
				err = nil
			}
		} else {
			err = store.Save(ctx, RecordFrom(key, snap, time.Now()))
		}
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("session persistence failed")
		}
	}
}

// Restore recarrega a sessão guardada em key e a adota no client via
// Become. Um token recusado pelo servidor remove o registro.
func Restore(ctx context.Context, client *parse.Client, store Store, key string) (*parse.User, error) {
	rec, err := store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	user, err := client.Become(ctx, rec.Token)
	if err != nil {
		if parseerr.IsCode(err, parseerr.InvalidSessionToken) {
			_ = store.Delete(ctx, key)
		}
		return nil, err
	}
	return user, nil
}
