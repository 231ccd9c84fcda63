package scenes

import (
	"errors"
	"fmt"

	"github.com/cyclopcam/scenereel/pkg/nuscenes"
)

var ErrChannelNotFound = errors.New("Channel not found in sample")
var ErrChainCycle = errors.New("Sample chain loops back on itself")
var ErrChainTooLong = errors.New("Sample chain is too long")

// A real scene is about 40 samples long, so this only trips on a broken dataset
const MaxChainLength = 10000

// SampleSource is the part of the catalog that the walker needs
type SampleSource interface {
	Sample(token string) (*nuscenes.Sample, error)
}

// WalkChannel follows the sample chain of a scene from its first sample to its last,
// and returns the sample_data token of 'channel' for every sample, in chain order.
func WalkChannel(src SampleSource, scene *nuscenes.Scene, channel string) ([]string, error) {
	tokens := []string{}
	visited := map[string]bool{}
	next := scene.FirstSampleToken
	for next != "" {
		if visited[next] {
			return nil, fmt.Errorf("%w: scene %v revisits sample %v", ErrChainCycle, scene.Name, next)
		}
		if len(tokens) >= MaxChainLength {
			return nil, fmt.Errorf("%w: scene %v has more than %v samples", ErrChainTooLong, scene.Name, MaxChainLength)
		}
		visited[next] = true
		sample, err := src.Sample(next)
		if err != nil {
			return nil, fmt.Errorf("Scene %v: %w", scene.Name, err)
		}
		sd, ok := sample.Data[channel]
		if !ok {
			return nil, fmt.Errorf("%w: scene %v sample %v has no %v", ErrChannelNotFound, scene.Name, sample.Token, channel)
		}
		tokens = append(tokens, sd)
		next = sample.Next
	}
	return tokens, nil
}
