package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	statusadapter "github.com/yoke233/metting/internal/adapters/render/status"
	"github.com/yoke233/metting/internal/adapters/repo/sqlite"
	tomlrepo "github.com/yoke233/metting/internal/adapters/repo/toml"
	"github.com/yoke233/metting/internal/adapters/runner/openai"
	"github.com/yoke233/metting/internal/adapters/runner/stub"
	chainstore "github.com/yoke233/metting/internal/adapters/secrets/chain"
	"github.com/yoke233/metting/internal/application"
	"github.com/yoke233/metting/internal/config"
	"github.com/yoke233/metting/internal/domain"
	"github.com/yoke233/metting/internal/logging"
	"github.com/yoke233/metting/internal/ports"
)

var errUnknownRunner = errors.New("unknown runner")

// newSecretStore is swapped in tests to keep pass out of the picture.
var newSecretStore = func(s config.Secrets) (ports.SecretStore, error) {
	return chainstore.NewDefaultStore(s.Dir, s.PassPrefix)
}

// app holds what every command shares. Storage and the runner are opened on
// first use so that config and auth commands work without them.
type app struct {
	viper          *viper.Viper
	settings       *config.Holder
	logger         *logging.Logger
	secrets        ports.SecretStore
	statusRenderer func(application.RunStatus, statusadapter.RenderOptions) (string, error)
	now            func() time.Time

	mu      sync.Mutex
	store   *sqlite.Store
	service *application.MeetingService
}

func wireApp() (*app, error) {
	v := viper.New()
	settings, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	logger, err := logging.NewLogger(settings.Log.Dir, settings.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	secrets, err := newSecretStore(settings.Secrets)
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	return &app{
		viper:          v,
		settings:       config.NewHolder(settings),
		logger:         logger,
		secrets:        secrets,
		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}, nil
}

// meetings returns the meeting service, opening storage and the configured
// runner the first time it is called.
func (a *app) meetings(ctx context.Context) (*application.MeetingService, *sqlite.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.service != nil {
		return a.service, a.store, nil
	}

	settings := a.settings.Get()
	runner, err := a.newRunner(ctx, settings)
	if err != nil {
		return nil, nil, err
	}

	repoConfig := viper.New()
	repoConfig.Set("storage.meetings_path", settings.Storage.MeetingsPath)
	meetings, err := tomlrepo.NewRepository(repoConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("wire meeting repository: %w", err)
	}

	store, err := sqlite.NewStore(ctx, settings.Storage.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("wire run store: %w", err)
	}

	prompts := func() domain.Prompts { return a.settings.Get().Prompts }
	a.store = store
	a.service = application.NewMeetingService(meetings, store, runner, prompts, ports.SystemClock{}, a.logger)

	return a.service, a.store, nil
}

func (a *app) newRunner(ctx context.Context, settings config.Settings) (ports.AgentRunner, error) {
	switch settings.Runner {
	case config.RunnerStub, "":
		return stub.NewRunner(ports.SystemClock{}), nil
	case config.RunnerOpenAI:
		apiKey, err := a.apiKey(ctx, settings)
		if err != nil {
			return nil, err
		}
		return openai.NewRunner(openai.Config{
			APIKey:      apiKey,
			BaseURL:     settings.OpenAI.BaseURL,
			Model:       settings.OpenAI.Model,
			Temperature: settings.OpenAI.Temperature,
			Timeout:     settings.OpenAI.Timeout,
		}, ports.SystemClock{}, a.logger)
	default:
		return nil, fmt.Errorf("%w %q (expected %s or %s)", errUnknownRunner, settings.Runner, config.RunnerStub, config.RunnerOpenAI)
	}
}

// apiKey prefers settings and environment, then the secret store.
func (a *app) apiKey(ctx context.Context, settings config.Settings) (string, error) {
	if key := strings.TrimSpace(settings.OpenAI.APIKey); key != "" {
		return key, nil
	}

	key, err := a.secrets.Get(ctx, openai.SecretKey)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return "", fmt.Errorf("%w: set openai.api_key, OPENAI_API_KEY or run `meeting auth set`", openai.ErrMissingAPIKey)
		}
		return "", fmt.Errorf("read api key from secret store: %w", err)
	}

	return strings.TrimSpace(key), nil
}

func (a *app) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
		a.service = nil
	}
	errs = append(errs, a.logger.Close())

	return errors.Join(errs...)
}
