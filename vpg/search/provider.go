package search

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
)

// Provider produces fixed-dimension embeddings from input strings
type Provider interface {
	Dimensions() int
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// NewProvider selects an embedding provider by name.
func NewProvider(name string, dims int) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hash", "", "dev":
		return NewHashProvider(dims), nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", name)
	}
}

type hashProvider struct{ dims int }

// NewHashProvider embeds each whitespace token into a hashed bucket, so texts
// sharing words land close together.
func NewHashProvider(dims int) Provider {
	if dims <= 0 {
		dims = 384
	}
	return &hashProvider{dims: dims}
}

func (h *hashProvider) Dimensions() int { return h.dims }

func (h *hashProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec := make([]float32, h.dims)
		for _, token := range strings.Fields(strings.ToLower(s)) {
			sum := sha256.Sum256([]byte(token))
			slot := (int(sum[0])<<16 | int(sum[1])<<8 | int(sum[2])) % h.dims
			sign := float32(1)
			if sum[3]&1 == 1 {
				sign = -1
			}
			vec[slot] += sign
		}
		out[i] = vec
	}
	return out, nil
}
