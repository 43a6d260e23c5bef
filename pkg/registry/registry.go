package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"

	"github.com/rodneyosodo/hypcluster/evaluation"
)

const (
	RuntimeLinear = "linear"
	RuntimeWasm   = "wasm"

	manifestFile = "manifest.toml"
	ociPrefix    = "oci://"
)

var (
	ErrNoManifest     = errors.New("bundle has no manifest")
	ErrUnknownRuntime = errors.New("unknown model runtime")
	ErrEmptyBundle    = errors.New("bundle declares no candidates")
	ErrMissingWasm    = errors.New("wasm bundle declares no module binary")
	ErrMissingWeights = errors.New("candidate declares no weights")
)

// Manifest describes a model bundle: the candidate list evaluated as one
// fixed, ordered set for a whole run.
type Manifest struct {
	Name       string          `toml:"name"`
	Runtime    string          `toml:"runtime"`
	Wasm       string          `toml:"wasm"`
	Candidates []CandidateSpec `toml:"candidates"`
}

// CandidateSpec declares one candidate's weights, either inline (linear
// runtime) or as a file reference.
type CandidateSpec struct {
	Name    string    `toml:"name"`
	Coeffs  []float64 `toml:"coeffs"`
	Bias    float64   `toml:"bias"`
	Weights string    `toml:"weights"`
}

// Bundle is a resolved candidate list plus whatever resources back it.
type Bundle struct {
	Name       string
	Candidates []evaluation.Candidate

	closers []func(ctx context.Context) error
}

func (b *Bundle) Close(ctx context.Context) error {
	var errs []error
	for _, c := range b.closers {
		if err := c(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Registry resolves bundle references into candidate lists.
type Registry interface {
	Load(ctx context.Context, ref string) (*Bundle, error)
}

type registry struct {
	oci OCIConfig
}

func New(oci OCIConfig) Registry {
	return &registry{oci: oci}
}

// Load resolves a bundle reference: a local directory, or an oci:// ref
// pulled from an OCI registry and unpacked to a temporary directory.
func (r *registry) Load(ctx context.Context, ref string) (*Bundle, error) {
	if strings.HasPrefix(ref, ociPrefix) {
		dir, err := r.oci.PullBundle(ctx, strings.TrimPrefix(ref, ociPrefix))
		if err != nil {
			return nil, err
		}

		return loadDir(ctx, dir)
	}

	return loadDir(ctx, ref)
}

func loadDir(ctx context.Context, dir string) (*Bundle, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoManifest, err)
	}

	var manifest Manifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(manifest.Candidates) == 0 {
		return nil, ErrEmptyBundle
	}

	switch manifest.Runtime {
	case RuntimeLinear, "":
		return loadLinearBundle(dir, manifest)
	case RuntimeWasm:
		return loadWasmBundle(ctx, dir, manifest)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownRuntime, manifest.Runtime)
	}
}
