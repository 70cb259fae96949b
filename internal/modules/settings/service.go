package settings

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/aristath/trendtrack/internal/domain"
	"github.com/rs/zerolog"
)

// Service keeps the persisted dashboard configuration in memory and writes
// every change through to the repository before returning.
type Service struct {
	repo *Repository
	log  zerolog.Logger

	mu  sync.RWMutex
	cfg domain.PersistedConfig
}

// NewService creates a new settings service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "settings").Logger(),
		cfg: domain.PersistedConfig{
			GeminiModel: domain.DefaultGeminiModel,
			Symbols:     append([]string(nil), domain.DefaultSymbols...),
		},
	}
}

// Load reads all known keys once. Keys missing from the database fall back
// to defaults (typically credentials from the environment).
func (s *Service) Load(defaults domain.PersistedConfig) error {
	stored, err := s.repo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	cfg := domain.PersistedConfig{
		FinnhubAPIKey: defaults.FinnhubAPIKey,
		GeminiAPIKey:  defaults.GeminiAPIKey,
		GeminiModel:   defaults.GeminiModel,
		Symbols:       append([]string(nil), defaults.Symbols...),
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = domain.DefaultGeminiModel
	}
	if cfg.Symbols == nil {
		cfg.Symbols = append([]string(nil), domain.DefaultSymbols...)
	}

	if v, ok := stored[KeyFinnhubAPIKey]; ok && v != "" {
		cfg.FinnhubAPIKey = v
	}
	if v, ok := stored[KeyGeminiAPIKey]; ok && v != "" {
		cfg.GeminiAPIKey = v
	}
	if v, ok := stored[KeyGeminiModel]; ok && v != "" {
		cfg.GeminiModel = v
	}
	if v, ok := stored[KeyWatchlistSymbols]; ok {
		var symbols []string
		if err := json.Unmarshal([]byte(v), &symbols); err != nil {
			s.log.Warn().Err(err).Msg("Ignoring unreadable watchlist symbols")
		} else {
			cfg.Symbols = symbols
		}
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	s.log.Info().
		Bool("finnhub_key", cfg.FinnhubAPIKey != "").
		Bool("gemini_key", cfg.GeminiAPIKey != "").
		Int("symbols", len(cfg.Symbols)).
		Msg("Settings loaded")

	return nil
}

// Config returns a copy of the current configuration.
func (s *Service) Config() domain.PersistedConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := s.cfg
	cfg.Symbols = append([]string(nil), s.cfg.Symbols...)
	return cfg
}

// FinnhubAPIKey returns the market data credential, empty when unset.
func (s *Service) FinnhubAPIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.FinnhubAPIKey
}

// SetFinnhubAPIKey stores the market data credential. Blank keys are rejected.
func (s *Service) SetFinnhubAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.NewValidationError("settings.finnhub_api_key", "Please enter a valid API key.")
	}
	if err := s.write(KeyFinnhubAPIKey, key); err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg.FinnhubAPIKey = key
	s.mu.Unlock()
	return nil
}

// SetGeminiAPIKey stores the analysis credential. A blank key clears it.
func (s *Service) SetGeminiAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		if err := s.repo.Delete(KeyGeminiAPIKey); err != nil {
			return err
		}
	} else if err := s.write(KeyGeminiAPIKey, key); err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg.GeminiAPIKey = key
	s.mu.Unlock()
	return nil
}

// SetGeminiModel overrides the analysis model. A blank name restores the default.
func (s *Service) SetGeminiModel(model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		model = domain.DefaultGeminiModel
	}
	if err := s.write(KeyGeminiModel, model); err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg.GeminiModel = model
	s.mu.Unlock()
	return nil
}

// SetSymbols persists the watchlist composition and order.
func (s *Service) SetSymbols(symbols []string) error {
	if symbols == nil {
		symbols = []string{}
	}
	data, err := json.Marshal(symbols)
	if err != nil {
		return fmt.Errorf("failed to marshal watchlist symbols: %w", err)
	}
	if err := s.write(KeyWatchlistSymbols, string(data)); err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg.Symbols = append([]string(nil), symbols...)
	s.mu.Unlock()
	return nil
}

// Set updates a user-editable setting by key.
func (s *Service) Set(key string, value interface{}) error {
	str, ok := value.(string)
	if !ok {
		return domain.NewValidationError("settings."+key, "value must be a string")
	}

	switch key {
	case KeyFinnhubAPIKey:
		return s.SetFinnhubAPIKey(str)
	case KeyGeminiAPIKey:
		return s.SetGeminiAPIKey(str)
	case KeyGeminiModel:
		return s.SetGeminiModel(str)
	case KeyWatchlistSymbols:
		return domain.NewValidationError("settings."+key, "watchlist symbols are managed through the watchlist endpoints")
	default:
		return domain.NewValidationError("settings."+key, "unknown setting")
	}
}

// GetAll lists every known setting with credentials masked.
func (s *Service) GetAll() map[string]interface{} {
	cfg := s.Config()

	values := map[string]interface{}{
		KeyFinnhubAPIKey:    cfg.FinnhubAPIKey,
		KeyGeminiAPIKey:     cfg.GeminiAPIKey,
		KeyGeminiModel:      cfg.GeminiModel,
		KeyWatchlistSymbols: cfg.Symbols,
	}
	for key := range secretKeys {
		values[key] = maskSecret(values[key].(string))
	}
	return values
}

func (s *Service) write(key, value string) error {
	desc := SettingDescriptions[key]
	if err := s.repo.Set(key, value, &desc); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("Failed to persist setting")
		return err
	}
	return nil
}

// maskSecret keeps the last four characters so users can tell keys apart.
func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(v)-4) + v[len(v)-4:]
}
