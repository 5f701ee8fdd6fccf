package upload

import (
	"errors"
	"fmt"
	"path"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const maxSegmentLen = 64

// Key is an object key. Model and Channel are both empty for flat keys.
type Key struct {
	Model   string
	Channel string
	Name    string
}

// String renders the key as stored: "{model}/{channel}/{name}" or "{name}".
func (k Key) String() string {
	if k.Model == "" && k.Channel == "" {
		return k.Name
	}
	return k.Model + "/" + k.Channel + "/" + k.Name
}

// Namer produces the generated file name for an uploaded file.
type Namer interface {
	Name(original string) string
}

// TimestampNamer prefixes the original name with the current Unix time in
// milliseconds: "1700000000000-cover.webp". Two uploads of the same name in
// the same millisecond collide.
type TimestampNamer struct {
	Now func() time.Time
}

// Name implements Namer.
func (n TimestampNamer) Name(original string) string {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	return strconv.FormatInt(now().UnixMilli(), 10) + "-" + original
}

// RandomNamer prefixes the original name with a random UUID instead of the clock.
type RandomNamer struct{}

// Name implements Namer.
func (RandomNamer) Name(original string) string {
	return uuid.NewString() + "-" + original
}

// cleanFileName strips any directory part a client may have sent.
func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	switch name {
	case "", ".", "..", "/":
		return "file"
	}
	return name
}

type segments struct {
	Model   string `form:"model" validate:"omitempty,max=64,segment"`
	Channel string `form:"channel" validate:"omitempty,max=64,segment"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	_ = v.RegisterValidation("segment", func(fl validator.FieldLevel) bool {
		return ValidateSegment(fl.Field().String())
	})
	return v
}

// ValidateSegment reports whether s can be used as a single key segment: no
// separators, not a dot segment, no "..", no control characters, at most 64
// bytes.
func ValidateSegment(s string) bool {
	if s == "" || s == "." || len(s) > maxSegmentLen {
		return false
	}
	if strings.ContainsAny(s, `/\`) || strings.Contains(s, "..") {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// validateSegments checks the optional model and channel fields.
func validateSegments(model, channel string) error {
	err := validate.Struct(segments{Model: model, Channel: channel})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return newError(KindMalformedRequest, fmt.Sprintf("invalid %s %q: must be a single path segment of at most %d bytes", fe.Field(), fe.Value(), maxSegmentLen), nil)
	}
	return newError(KindMalformedRequest, "invalid model or channel", err)
}
