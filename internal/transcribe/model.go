package transcribe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

var ErrUnknownModel = errors.New("unknown model")

// whisper model size
type Model string

const (
	ModelTiny   Model = "tiny"
	ModelBase   Model = "base"
	ModelSmall  Model = "small"
	ModelMedium Model = "medium"
	ModelLarge  Model = "large"
)

// Models lists the accepted sizes from smallest to largest.
func Models() []Model {
	return []Model{ModelTiny, ModelBase, ModelSmall, ModelMedium, ModelLarge}
}

// ModelNames returns Models as plain strings, for flag help text.
func ModelNames() []string {
	return lo.Map(Models(), func(m Model, _ int) string { return string(m) })
}

// ParseModel accepts a model name case-insensitively.
func ParseModel(name string) (Model, error) {
	m := Model(strings.ToLower(strings.TrimSpace(name)))
	if !lo.Contains(Models(), m) {
		return "", fmt.Errorf(
			"%w %q (expected one of %s)",
			ErrUnknownModel,
			name,
			strings.Join(ModelNames(), ", "),
		)
	}
	return m, nil
}
