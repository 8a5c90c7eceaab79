package parse

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/raywall/parse-toolkit/parseerr"
)

var ErrMissingDeviceType = errors.New("parse: installation needs a deviceType")

// Installation registra um dispositivo em _Installation.
type Installation struct {
	*Object
}

// NewInstallation cria uma instalação com installationId aleatório.
func NewInstallation(deviceType string) (*Installation, error) {
	if deviceType == "" {
		return nil, parseerr.NewPrecondition(ErrMissingDeviceType)
	}
	in := &Installation{Object: NewObject(ClassInstallation)}
	if err := in.Set("deviceType", deviceType); err != nil {
		return nil, err
	}
	if err := in.Set("installationId", uuid.NewString()); err != nil {
		return nil, err
	}
	return in, nil
}

func (in *Installation) InstallationID() string {
	s, _ := in.GetString("installationId")
	return s
}

func (in *Installation) SetDeviceToken(token string) error {
	return in.Set("deviceToken", token)
}

func (in *Installation) SetChannels(channels ...string) error {
	return in.Set("channels", channels)
}

// GetInstallation busca a instalação pelo objectId.
func (c *Client) GetInstallation(ctx context.Context, objectID string, opts ...CallOption) (*Installation, error) {
	o, err := c.GetObject(ctx, ClassInstallation, objectID, opts...)
	if err != nil {
		return nil, err
	}
	return &Installation{Object: o}, nil
}
