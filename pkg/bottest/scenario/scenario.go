// Package scenario runs YAML-described conversations against a bottest
// client. A scenario declares simulated users and a list of steps; each step
// performs one user action and checks the calls the bot made in response.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"botharness/pkg/bottest"
)

// Scenario is the top-level structure of a scenario file.
type Scenario struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Users       []UserSpec `yaml:"users"`
	Steps       []Step     `yaml:"steps"`
}

// UserSpec declares one simulated user. Empty fields keep factory defaults.
type UserSpec struct {
	Key       string `yaml:"key"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Handle    string `yaml:"handle"`
	Language  string `yaml:"language"`
}

// Step is one action and the expectations on the calls it produced.
// Exactly one of Send, Click, Dice, QueueDice and Reset is set.
type Step struct {
	// User is the acting user key. Empty means the first declared user.
	User string `yaml:"user"`
	// Send delivers text; a leading slash sends a command with arguments.
	Send string `yaml:"send"`
	// Click presses a button carrying this callback data.
	Click string `yaml:"click"`
	// Dice throws a dice as the user.
	Dice *DiceThrow `yaml:"dice"`
	// QueueDice queues values for the bot's next dice sends.
	QueueDice []int `yaml:"queue_dice"`
	// Reset resets the client.
	Reset bool `yaml:"reset"`

	Expect Expect `yaml:"expect"`
}

// DiceThrow is a user-thrown dice. An omitted value is random.
type DiceThrow struct {
	Emoji string `yaml:"emoji"`
	Value int    `yaml:"value"`
}

// Expect lists checks over the calls of one step. Text checks look at every
// call carrying text or a caption.
type Expect struct {
	Contains []string `yaml:"contains"`
	Absent   []string `yaml:"absent"`
	LastText string   `yaml:"last_text"`
	// Kind restricts Count and MinCount to calls of one kind.
	Kind     string `yaml:"kind"`
	Count    *int   `yaml:"count"`
	MinCount int    `yaml:"min_count"`
	NoReply  bool   `yaml:"no_reply"`
}

// Load decodes and validates one scenario. Unknown keys are rejected.
func Load(r io.Reader) (*Scenario, error) {
	scenario, err := decode(r)
	if err != nil {
		return nil, err
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	return scenario, nil
}

// LoadFile loads the scenario at path. A missing name defaults to the file
// name without extension.
func LoadFile(path string) (*Scenario, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	scenario, err := decode(file)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if scenario.Name == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	return scenario, nil
}

// LoadDir loads every .yaml and .yml file of dir in name order.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir %s: %w", dir, err)
	}

	scenarios := make([]*Scenario, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		scenario, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, scenario)
	}

	return scenarios, nil
}

func decode(r io.Reader) (*Scenario, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var scenario Scenario
	if err := decoder.Decode(&scenario); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse scenario: empty document: %w", ErrInvalidScenario)
		}
		return nil, fmt.Errorf("parse scenario: %v: %w", err, ErrInvalidScenario)
	}

	return &scenario, nil
}

// Validate checks that every step names a known user, performs exactly one
// action and carries consistent expectations.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("validate scenario: empty name: %w", ErrInvalidScenario)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("validate scenario %q: no steps: %w", s.Name, ErrInvalidScenario)
	}

	users := make(map[string]struct{}, len(s.Users))
	for idx, user := range s.Users {
		if user.Key == "" {
			return fmt.Errorf("validate scenario %q: user %d: empty key: %w", s.Name, idx, ErrInvalidScenario)
		}
		if _, dup := users[user.Key]; dup {
			return fmt.Errorf("validate scenario %q: duplicate user %q: %w", s.Name, user.Key, ErrInvalidScenario)
		}
		users[user.Key] = struct{}{}
	}

	for idx, step := range s.Steps {
		if err := step.validate(users); err != nil {
			return fmt.Errorf("validate scenario %q: step %d: %v: %w", s.Name, idx+1, err, ErrInvalidScenario)
		}
	}

	return nil
}

func (s Step) validate(users map[string]struct{}) error {
	actions := 0
	for _, set := range []bool{s.Send != "", s.Click != "", s.Dice != nil, len(s.QueueDice) > 0, s.Reset} {
		if set {
			actions++
		}
	}
	if actions != 1 {
		return fmt.Errorf("want exactly one action, got %d", actions)
	}
	if s.User != "" {
		if _, ok := users[s.User]; !ok {
			return fmt.Errorf("unknown user %q", s.User)
		}
	}
	if s.Dice != nil && s.Dice.Value != bottest.RandomDiceValue {
		if err := validateDice(s.Dice.Emoji, s.Dice.Value); err != nil {
			return err
		}
	}
	if s.Send != "" && strings.TrimSpace(s.Send) == "/" {
		return errors.New("empty command")
	}

	return s.Expect.validate()
}

func (e Expect) validate() error {
	if e.Kind != "" && !knownKind(e.Kind) {
		return fmt.Errorf("unknown call kind %q", e.Kind)
	}
	if e.Count != nil && *e.Count < 0 {
		return fmt.Errorf("negative count %d", *e.Count)
	}
	if e.MinCount < 0 {
		return fmt.Errorf("negative min_count %d", e.MinCount)
	}
	if e.NoReply && (len(e.Contains) > 0 || e.LastText != "" || e.MinCount > 0 || (e.Count != nil && *e.Count > 0)) {
		return errors.New("no_reply contradicts other expectations")
	}

	return nil
}
