package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/factview/internal/compiler"
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the views loaded from a directory.
type LoadResult struct {
	Views     []*compiler.View
	CUEValue  cue.Value
	FileCount int
}

// View returns the named view. An empty name selects the only view.
func (r *LoadResult) View(name string) (*compiler.View, error) {
	if name == "" {
		if len(r.Views) != 1 {
			return nil, fmt.Errorf("specs declare %d views, select one with --view", len(r.Views))
		}
		return r.Views[0], nil
	}
	for _, v := range r.Views {
		if v.Name == name {
			return v, nil
		}
	}
	return nil, fmt.Errorf("view %q not found", name)
}

// LoadError is an error raised while loading specs, with its CUE position
// when known.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSpecs loads the CUE instance in dir and builds every view it
// declares. If mode is LoadModeFailFast, returns on the first view error.
func LoadSpecs(dir string, mode LoadMode) (*LoadResult, []error) {
	value, fileCount, err := loadCUE(dir)
	if err != nil {
		return nil, []error{err}
	}

	result := &LoadResult{CUEValue: value, FileCount: fileCount}
	var errs []error

	viewsVal := value.LookupPath(cue.ParsePath("view"))
	if !viewsVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: "no views found in specs"}}
	}
	iter, err := viewsVal.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating views: %v", err)}}
	}

	for iter.Next() {
		name := iter.Selector().Unquoted()
		spec, compileErr := compiler.CompileView(iter.Value())
		if compileErr == nil {
			var view *compiler.View
			view, compileErr = compiler.Build(spec)
			if compileErr == nil {
				result.Views = append(result.Views, view)
				continue
			}
		}
		errs = append(errs, convertCompileError(compileErr, "view."+name))
		if mode == LoadModeFailFast {
			return result, errs
		}
	}
	return result, errs
}

// loadCUE builds the CUE instance in dir.
func loadCUE(dir string) (cue.Value, int, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}
	}
	if err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}
	}
	if !info.IsDir() {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return value, len(cueFiles), nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
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

// convertCompileError turns a compiler error into a LoadError, keeping the
// position of parse errors and the code of the first validation error.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	var validationErr compiler.ValidationError
	if errors.As(err, &validationErr) {
		return &LoadError{
			Code:    validationErr.Code,
			Message: fmt.Sprintf("%s: %v", context, err),
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants shared by all commands. View schema codes (E1xx)
// come from the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeFactLog     = "E008" // Fact log error
)

// MapFieldToErrorCode maps a compile error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeBuildFailed
	case strings.HasSuffix(field, ".kind"):
		return compiler.ErrUnknownKind
	default:
		return compiler.ErrInvalidValue
	}
}
