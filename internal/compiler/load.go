package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/minq/internal/ir"
)

// LoadScene compiles a scene from a single .cue file or from every .cue file
// in a directory, which CUE unifies into one instance.
func LoadScene(path string) (*ir.Scene, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}

	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", path, err)
		}
		return CompileSceneSource(src, path)
	}

	files, err := FindCUEFiles(path)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", path)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileScene(value)
}

// CompileSceneSource compiles CUE source text. filename is used only for
// error positions.
func CompileSceneSource(src []byte, filename string) (*ir.Scene, error) {
	value := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileScene(value)
}

// FindCUEFiles returns the .cue files directly inside dir.
func FindCUEFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, err
	}
	return matches, nil
}
