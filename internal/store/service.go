package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrMalformedDocument reports that a stored document could not be decoded
// as written and that defaults were substituted for the broken parts. The
// returned value is still usable; callers log and continue.
var ErrMalformedDocument = errors.New("malformed stored document")

var ErrUnknownPanel = errors.New("unknown panel id")

// Service reads and writes the JSON documents under the data directory.
// Documents are re-read on every call so dashboard edits apply without a
// restart. Writes come only from the dashboard handlers.
type Service struct {
	logger *slog.Logger
	dir    string
	mu     sync.Mutex
}

func NewService(log *slog.Logger, dir string) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		logger: log.With(slog.String("service", "store")),
		dir:    dir,
	}
	if err := s.bootstrap(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) bootstrap() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	for n := 1; n <= 2; n++ {
		if err := s.ensure(s.panelPath(n), DefaultPanel()); err != nil {
			return err
		}
	}
	if err := s.ensure(s.path("config.json"), DefaultGuild()); err != nil {
		return err
	}
	if err := s.ensure(s.path("streamers.json"), []Streamer{}); err != nil {
		return err
	}
	return s.ensure(s.path("stream_state.json"), StreamState{})
}

func (s *Service) ensure(path string, value any) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return s.write(path, value)
}

func (s *Service) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Service) panelPath(n int) string {
	return s.path(fmt.Sprintf("panel%d.json", n))
}

func (s *Service) write(path string, value any) error {
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Panel returns the panel document. A document that cannot be decoded as
// written comes back with defaults substituted per field and an error
// wrapping ErrMalformedDocument naming the substituted fields.
func (s *Service) Panel(n int) (PanelConfig, error) {
	if n != 1 && n != 2 {
		return DefaultPanel(), ErrUnknownPanel
	}
	raw, err := os.ReadFile(s.panelPath(n))
	if err != nil {
		return DefaultPanel(), fmt.Errorf("read panel %d: %w", n, err)
	}
	return decodePanel(raw)
}

func (s *Service) SavePanel(n int, p PanelConfig) error {
	if n != 1 && n != 2 {
		return ErrUnknownPanel
	}
	normalizePanel(&p)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(s.panelPath(n), p)
}

func (s *Service) Guild() (GuildConfig, error) {
	raw, err := os.ReadFile(s.path("config.json"))
	if err != nil {
		return DefaultGuild(), fmt.Errorf("read guild config: %w", err)
	}
	return decodeGuild(raw)
}

func (s *Service) SaveGuild(cfg GuildConfig) error {
	if cfg.StaffRoleIDs == nil {
		cfg.StaffRoleIDs = []string{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(s.path("config.json"), cfg)
}

func (s *Service) Streamers() ([]Streamer, error) {
	raw, err := os.ReadFile(s.path("streamers.json"))
	if err != nil {
		return nil, fmt.Errorf("read streamers: %w", err)
	}
	var out []Streamer
	if err := json.Unmarshal(raw, &out); err != nil {
		return []Streamer{}, fmt.Errorf("%w: streamers.json: %w", ErrMalformedDocument, err)
	}
	return out, nil
}

func (s *Service) SaveStreamers(list []Streamer) error {
	if list == nil {
		list = []Streamer{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(s.path("streamers.json"), list)
}

func (s *Service) StreamState() (StreamState, error) {
	raw, err := os.ReadFile(s.path("stream_state.json"))
	if err != nil {
		return StreamState{}, fmt.Errorf("read stream state: %w", err)
	}
	var out StreamState
	if err := json.Unmarshal(raw, &out); err != nil {
		return StreamState{}, fmt.Errorf("%w: stream_state.json: %w", ErrMalformedDocument, err)
	}
	if out == nil {
		out = StreamState{}
	}
	return out, nil
}

func (s *Service) SaveStreamState(state StreamState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(s.path("stream_state.json"), state)
}

// decodePanel decodes field by field so one broken section degrades to its
// default without taking the whole panel down with it.
func decodePanel(raw []byte) (PanelConfig, error) {
	p := DefaultPanel()
	p.Title = ""
	p.Body = ""
	p.ButtonLabel = ""

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return DefaultPanel(), fmt.Errorf("%w: panel document: %w", ErrMalformedDocument, err)
	}

	var bad []string
	decodeField := func(name string, dst any) {
		field, ok := doc[name]
		if !ok {
			return
		}
		if err := json.Unmarshal(field, dst); err != nil {
			bad = append(bad, name)
		}
	}

	decodeField("mode", &p.Mode)
	decodeField("title", &p.Title)
	decodeField("body", &p.Body)
	decodeField("buttonLabel", &p.ButtonLabel)
	decodeField("branding", &p.Branding)
	decodeField("buttonForm", &p.ButtonForm)
	decodeField("options", &p.Options)

	normalizePanel(&p)

	if len(bad) > 0 {
		return p, fmt.Errorf("%w: fields defaulted: %s", ErrMalformedDocument, strings.Join(bad, ", "))
	}
	return p, nil
}

func decodeGuild(raw []byte) (GuildConfig, error) {
	cfg := DefaultGuild()

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return DefaultGuild(), fmt.Errorf("%w: guild config: %w", ErrMalformedDocument, err)
	}

	var bad []string
	decodeField := func(name string, dst any) {
		field, ok := doc[name]
		if !ok {
			return
		}
		if err := json.Unmarshal(field, dst); err != nil {
			bad = append(bad, name)
		}
	}

	decodeField("supportCategoryId", &cfg.SupportCategoryID)
	decodeField("allowedRoleIds", &cfg.StaffRoleIDs)
	decodeField("kick", &cfg.Kick)

	if cfg.StaffRoleIDs == nil {
		cfg.StaffRoleIDs = []string{}
	}
	if len(bad) > 0 {
		return cfg, fmt.Errorf("%w: fields defaulted: %s", ErrMalformedDocument, strings.Join(bad, ", "))
	}
	return cfg, nil
}

func normalizePanel(p *PanelConfig) {
	if p.Mode != ModeDropdown {
		p.Mode = ModeButton
	}
	if len(p.ButtonForm) > MaxFormFields {
		p.ButtonForm = p.ButtonForm[:MaxFormFields]
	}
	if len(p.Options) > MaxOptions {
		p.Options = p.Options[:MaxOptions]
	}
	for i := range p.Options {
		if len(p.Options[i].Form) > MaxFormFields {
			p.Options[i].Form = p.Options[i].Form[:MaxFormFields]
		}
	}
}
