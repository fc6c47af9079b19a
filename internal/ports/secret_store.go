package ports

import "context"

// SecretStore keeps credentials such as the OpenAI API key out of the
// settings file. Get reports a missing key with domain.ErrSecretNotFound.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
