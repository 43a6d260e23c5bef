package registry

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"
)

const defaultTag = "latest"

var errNoLayers = errors.New("bundle artifact has no layers")

// OCIConfig configures pulls of model bundles published as OCI artifacts.
// The bundle layer is a gzipped tarball of the bundle directory.
type OCIConfig struct {
	Authenticate bool
	Token        string
	Username     string
	Password     string
	RegistryURL  string
}

// PullBundle fetches the bundle layer for ref and unpacks it into a fresh
// temporary directory, whose path it returns.
func (c OCIConfig) PullBundle(ctx context.Context, ref string) (string, error) {
	repo, err := remote.NewRepository(ref)
	if err != nil {
		return "", fmt.Errorf("failed to create repository for %s: %w", ref, err)
	}
	c.setupAuthentication(repo)

	manifest, err := fetchManifest(ctx, repo, ref)
	if err != nil {
		return "", err
	}

	layer, err := findLargestLayer(manifest)
	if err != nil {
		return "", fmt.Errorf("failed to find bundle layer for %s: %w", ref, err)
	}

	layerReader, err := repo.Fetch(ctx, layer)
	if err != nil {
		return "", fmt.Errorf("failed to fetch bundle layer for %s: %w", ref, err)
	}
	defer layerReader.Close()

	dir, err := os.MkdirTemp("", "hypcluster-bundle-")
	if err != nil {
		return "", fmt.Errorf("failed to create bundle directory: %w", err)
	}

	if err := untar(layerReader, dir); err != nil {
		return "", fmt.Errorf("failed to unpack bundle for %s: %w", ref, err)
	}

	return dir, nil
}

func (c OCIConfig) setupAuthentication(repo *remote.Repository) {
	if !c.Authenticate {
		return
	}

	var cred auth.Credential
	if c.Username != "" && c.Password != "" {
		cred = auth.Credential{
			Username: c.Username,
			Password: c.Password,
		}
	} else if c.Token != "" {
		cred = auth.Credential{
			AccessToken: c.Token,
		}
	}

	repo.Client = &auth.Client{
		Client:     retry.DefaultClient,
		Cache:      auth.NewCache(),
		Credential: auth.StaticCredential(c.RegistryURL, cred),
	}
}

func fetchManifest(ctx context.Context, repo *remote.Repository, ref string) (*ocispec.Manifest, error) {
	tag := defaultTag
	if idx := strings.LastIndex(ref, ":"); idx > strings.LastIndex(ref, "/") {
		tag = ref[idx+1:]
	}

	descriptor, err := repo.Resolve(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest for %s: %w", ref, err)
	}

	reader, err := repo.Fetch(ctx, descriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest for %s: %w", ref, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest for %s: %w", ref, err)
	}

	var manifest ocispec.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest for %s: %w", ref, err)
	}

	return &manifest, nil
}

func findLargestLayer(manifest *ocispec.Manifest) (ocispec.Descriptor, error) {
	if len(manifest.Layers) == 0 {
		return ocispec.Descriptor{}, errNoLayers
	}

	largest := manifest.Layers[0]
	for _, layer := range manifest.Layers[1:] {
		if layer.Size > largest.Size {
			largest = layer
		}
	}

	return largest, nil
}

func untar(r io.Reader, dir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		target := filepath.Join(dir, filepath.Clean(header.Name))
		if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
			return fmt.Errorf("tar entry escapes bundle directory: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, header.FileInfo().Mode())
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()

				return err
			}
			f.Close()
		}
	}
}
