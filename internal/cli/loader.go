package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/layersync/internal/compiler"
	"github.com/roach88/layersync/internal/ir"
)

// LoadResult contains the layers loaded from a directory.
type LoadResult struct {
	Layers    []ir.LayerSpec
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// Count returns the number of layers, groups and their children included.
func (r *LoadResult) Count() int {
	return countLayers(r.Layers)
}

func countLayers(specs []ir.LayerSpec) int {
	n := len(specs)
	for _, s := range specs {
		n += countLayers(s.Layers)
	}
	return n
}

// LoadError represents an error that occurred during layer loading.
type LoadError struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadLayers loads the CUE package in dir and compiles its layers.
func LoadLayers(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("layers directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing layers directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	result := &LoadResult{CUEValue: value, FileCount: len(cueFiles)}
	specs, err := compiler.CompileLayers(value)
	if err != nil {
		return result, convertCompileError(err)
	}
	if len(specs) == 0 {
		return result, &LoadError{Code: ErrCodeNoLayers, Field: "layers", Message: "no layers found"}
	}
	result.Layers = specs
	return result, nil
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

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Field:   compileErr.Field,
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeStore       = "E007" // Database error

	// Layer definition errors
	ErrCodeNoLayers       = "E101" // No layers defined
	ErrCodeLayerTitle     = "E102" // Missing or invalid title
	ErrCodeLayerOpacity   = "E103" // Opacity outside [0, 1]
	ErrCodeLayerVisible   = "E104" // Visible is not a bool
	ErrCodeLayerProperty  = "E105" // Reserved or invalid extra property
	ErrCodeSnapshotAbsent = "E110" // Snapshot not found
)

// MapFieldToErrorCode maps a compiler error field to an error code by its
// last path element.
func MapFieldToErrorCode(field string) string {
	segments := strings.Split(field, ".")
	switch last := segments[len(segments)-1]; {
	case last == "title":
		return ErrCodeLayerTitle
	case last == "opacity":
		return ErrCodeLayerOpacity
	case last == "visible":
		return ErrCodeLayerVisible
	case slices.Contains(segments, "properties"):
		return ErrCodeLayerProperty
	default:
		return ErrCodeGeneric
	}
}
