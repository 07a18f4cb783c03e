package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/churn/internal/engine"
	"github.com/roach88/churn/internal/record"
)

// Load compiles and validates a single CUE profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("profile not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading profile: %v", err)}
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(ErrCodeParseFailed, err)
	}

	profVal := v.LookupPath(cue.ParsePath("profile"))
	if !profVal.Exists() {
		return nil, &LoadError{
			Code:    ErrCodeNoProfile,
			Message: fmt.Sprintf("no profile struct in %s", path),
			Pos:     v.Pos(),
		}
	}

	return compile(profVal)
}

// LoadDir loads every .cue file under dir, collecting all errors rather
// than stopping at the first so a validate pass reports everything at
// once. Files are visited in lexical order.
func LoadDir(dir string) ([]*Profile, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("profile directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing profile directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := findCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	var profiles []*Profile
	var errs []error
	for _, f := range files {
		p, err := Load(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, errs
}

// findCUEFiles walks the directory and returns all .cue file paths.
func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// compile parses a CUE value into a validated Profile.
//
// Validation is strict where the engine clamps: a profile carrying an
// out-of-range value is rejected with its position instead of silently
// adjusted, so typos surface at load time.
func compile(v cue.Value) (*Profile, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(ErrCodeParseFailed, err)
	}

	p := &Profile{PayloadMode: record.ModeSimple}

	name, err := requiredString(v, "name", ErrCodeName)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, &LoadError{Code: ErrCodeName, Message: "name must not be empty", Pos: v.Pos()}
	}
	p.Name = name

	tick, err := requiredInt(v, "tickInterval", ErrCodeTickInterval)
	if err != nil {
		return nil, err
	}
	interval := time.Duration(tick) * time.Millisecond
	if interval < engine.MinTickInterval || interval > engine.MaxTickInterval {
		return nil, &LoadError{
			Code: ErrCodeTickInterval,
			Message: fmt.Sprintf("tickInterval must be between %d and %d ms, got %d",
				engine.MinTickInterval/time.Millisecond, engine.MaxTickInterval/time.Millisecond, tick),
			Pos: fieldPos(v, "tickInterval"),
		}
	}
	p.TickInterval = interval

	batch, err := requiredInt(v, "batchSize", ErrCodeBatchSize)
	if err != nil {
		return nil, err
	}
	if batch < engine.MinBatchSize || batch > engine.MaxBatchSize {
		return nil, &LoadError{
			Code: ErrCodeBatchSize,
			Message: fmt.Sprintf("batchSize must be between %d and %d, got %d",
				engine.MinBatchSize, engine.MaxBatchSize, batch),
			Pos: fieldPos(v, "batchSize"),
		}
	}
	p.BatchSize = int(batch)

	update, err := requiredInt(v, "updatePercent", ErrCodeUpdatePercent)
	if err != nil {
		return nil, err
	}
	if update < engine.MinUpdatePercent || update > engine.MaxUpdatePercent {
		return nil, &LoadError{
			Code: ErrCodeUpdatePercent,
			Message: fmt.Sprintf("updatePercent must be between %d and %d, got %d",
				engine.MinUpdatePercent, engine.MaxUpdatePercent, update),
			Pos: fieldPos(v, "updatePercent"),
		}
	}
	p.UpdatePercent = int(update)

	modeVal := v.LookupPath(cue.ParsePath("payloadMode"))
	if modeVal.Exists() {
		mode, err := modeVal.String()
		if err != nil {
			return nil, formatCUEError(ErrCodePayloadMode, err)
		}
		switch record.Mode(mode) {
		case record.ModeSimple, record.ModeHeavy:
			p.PayloadMode = record.Mode(mode)
		default:
			return nil, &LoadError{
				Code:    ErrCodePayloadMode,
				Message: fmt.Sprintf("payloadMode must be %q or %q, got %q", record.ModeSimple, record.ModeHeavy, mode),
				Pos:     modeVal.Pos(),
			}
		}
	}

	durVal := v.LookupPath(cue.ParsePath("duration"))
	if durVal.Exists() {
		s, err := durVal.String()
		if err != nil {
			return nil, formatCUEError(ErrCodeDuration, err)
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, &LoadError{
				Code:    ErrCodeDuration,
				Message: fmt.Sprintf("duration %q is not a valid duration", s),
				Pos:     durVal.Pos(),
			}
		}
		if d <= 0 {
			return nil, &LoadError{
				Code:    ErrCodeDuration,
				Message: fmt.Sprintf("duration must be positive, got %s", d),
				Pos:     durVal.Pos(),
			}
		}
		p.Duration = d
	}

	return p, nil
}

func requiredString(v cue.Value, field, code string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &LoadError{Code: code, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(code, err)
	}
	return s, nil
}

func requiredInt(v cue.Value, field, code string) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &LoadError{Code: code, Message: field + " is required", Pos: v.Pos()}
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(code, err)
	}
	return n, nil
}

func fieldPos(v cue.Value, field string) token.Pos {
	return v.LookupPath(cue.ParsePath(field)).Pos()
}
