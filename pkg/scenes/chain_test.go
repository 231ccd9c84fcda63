package scenes

import (
	"fmt"
	"testing"

	"github.com/cyclopcam/scenereel/pkg/log"
	"github.com/cyclopcam/scenereel/pkg/nuscenes"
	"github.com/stretchr/testify/require"
)

type memSamples map[string]*nuscenes.Sample

func (m memSamples) Sample(token string) (*nuscenes.Sample, error) {
	if s, ok := m[token]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: sample %v", nuscenes.ErrNotFound, token)
}

// makeChain builds n linked samples s0..s(n-1), each with a CAM_FRONT reference c0..c(n-1)
func makeChain(n int) memSamples {
	m := memSamples{}
	for i := 0; i < n; i++ {
		next := ""
		if i != n-1 {
			next = fmt.Sprintf("s%v", i+1)
		}
		m[fmt.Sprintf("s%v", i)] = &nuscenes.Sample{
			Token: fmt.Sprintf("s%v", i),
			Next:  next,
			Data:  map[string]string{nuscenes.ChannelCamFront: fmt.Sprintf("c%v", i)},
		}
	}
	return m
}

func TestWalkChannel(t *testing.T) {
	for _, n := range []int{1, 2, 40} {
		src := makeChain(n)
		scene := &nuscenes.Scene{Name: "x", FirstSampleToken: "s0"}
		refs, err := WalkChannel(src, scene, nuscenes.ChannelCamFront)
		require.NoError(t, err)
		require.Len(t, refs, n)
		for i, r := range refs {
			require.Equal(t, fmt.Sprintf("c%v", i), r)
		}
	}
}

func TestWalkChannelMissing(t *testing.T) {
	src := makeChain(3)
	delete(src["s1"].Data, nuscenes.ChannelCamFront)
	_, err := WalkChannel(src, &nuscenes.Scene{Name: "x", FirstSampleToken: "s0"}, nuscenes.ChannelCamFront)
	require.ErrorIs(t, err, ErrChannelNotFound)

	_, err = WalkChannel(makeChain(3), &nuscenes.Scene{Name: "x", FirstSampleToken: "s0"}, "CAM_BACK")
	require.ErrorIs(t, err, ErrChannelNotFound)
}

func TestWalkChannelBrokenChain(t *testing.T) {
	src := makeChain(3)
	src["s2"].Next = "s0"
	_, err := WalkChannel(src, &nuscenes.Scene{Name: "x", FirstSampleToken: "s0"}, nuscenes.ChannelCamFront)
	require.ErrorIs(t, err, ErrChainCycle)

	src = makeChain(3)
	src["s1"].Next = "gone"
	_, err = WalkChannel(src, &nuscenes.Scene{Name: "x", FirstSampleToken: "s0"}, nuscenes.ChannelCamFront)
	require.ErrorIs(t, err, nuscenes.ErrNotFound)

	long := makeChain(MaxChainLength + 1)
	_, err = WalkChannel(long, &nuscenes.Scene{Name: "x", FirstSampleToken: "s0"}, nuscenes.ChannelCamFront)
	require.ErrorIs(t, err, ErrChainTooLong)
}

func TestWalkCatalog(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, nuscenes.WriteTestDataset(root, nuscenes.TestDatasetParams{
		Scenes: []nuscenes.TestScene{{Name: "scene-0010", NumSamples: 4}},
	}))
	cat, err := nuscenes.Open(log.NewTestingLog(t), root, "v1.0-mini")
	require.NoError(t, err)
	refs, err := WalkChannel(cat, &cat.Scenes[0], nuscenes.ChannelCamFront)
	require.NoError(t, err)
	require.Len(t, refs, 4)
}
