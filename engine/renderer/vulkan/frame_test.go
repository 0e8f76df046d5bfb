package vulkan

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFrameBackend models fences as booleans. A wait completes the device work
// of the slot, a submit makes it pending again.
type fakeFrameBackend struct {
	imageCount uint32
	acquired   uint32

	signaled    []bool
	outstanding int
	maxPending  int

	ops           []string
	uniformWrites map[uint32]int
	failOn        string
}

func newFakeFrameBackend(framesInFlight, imageCount uint32) *fakeFrameBackend {
	f := &fakeFrameBackend{
		imageCount:    imageCount,
		signaled:      make([]bool, framesInFlight),
		uniformWrites: map[uint32]int{},
	}
	for i := range f.signaled {
		f.signaled[i] = true
	}
	return f
}

func (f *fakeFrameBackend) fail(op string) error {
	if f.failOn == op {
		return errors.Wrap(core.ErrFrameSubmission, op)
	}
	return nil
}

func (f *fakeFrameBackend) WaitForFrame(slot uint32) error {
	f.ops = append(f.ops, fmt.Sprintf("wait:%d", slot))
	if !f.signaled[slot] {
		f.signaled[slot] = true
		f.outstanding--
	}
	return f.fail("wait")
}

func (f *fakeFrameBackend) ResetFrame(slot uint32) error {
	f.ops = append(f.ops, fmt.Sprintf("reset:%d", slot))
	if !f.signaled[slot] {
		return errors.Newf("reset of unsignaled fence %d", slot)
	}
	return f.fail("reset")
}

func (f *fakeFrameBackend) AcquireNextImage(slot uint32) (uint32, error) {
	image := f.acquired % f.imageCount
	f.acquired++
	f.ops = append(f.ops, fmt.Sprintf("acquire:%d", image))
	return image, f.fail("acquire")
}

func (f *fakeFrameBackend) RecordCommands(imageIndex uint32) error {
	f.ops = append(f.ops, fmt.Sprintf("record:%d", imageIndex))
	return f.fail("record")
}

func (f *fakeFrameBackend) UpdateUniforms(imageIndex uint32) error {
	f.uniformWrites[imageIndex]++
	f.ops = append(f.ops, fmt.Sprintf("uniforms:%d", imageIndex))
	return f.fail("uniforms")
}

func (f *fakeFrameBackend) Submit(slot, imageIndex uint32) error {
	if err := f.fail("submit"); err != nil {
		return err
	}
	f.ops = append(f.ops, fmt.Sprintf("submit:%d", slot))
	f.signaled[slot] = false
	f.outstanding++
	if f.outstanding > f.maxPending {
		f.maxPending = f.outstanding
	}
	return nil
}

func (f *fakeFrameBackend) Present(slot, imageIndex uint32) error {
	f.ops = append(f.ops, fmt.Sprintf("present:%d", imageIndex))
	return f.fail("present")
}

func TestFrameOrchestratorFiveDraws(t *testing.T) {
	backend := newFakeFrameBackend(2, 3)
	fo, err := NewFrameOrchestrator(backend, 2, 3)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, fo.Draw())
	}

	assert.Len(t, backend.uniformWrites, 3)
	assert.Equal(t, uint64(5), fo.FrameNumber)
	assert.Equal(t, uint32(1), fo.CurrentFrame())
	assert.LessOrEqual(t, backend.maxPending, 2)

	// every submit of a slot after its first is preceded by a wait on it
	lastSubmit := map[string]int{}
	for i, op := range backend.ops {
		var slot uint32
		if _, err := fmt.Sscanf(op, "submit:%d", &slot); err != nil {
			continue
		}
		key := fmt.Sprint(slot)
		if prev, ok := lastSubmit[key]; ok {
			assert.Contains(t, backend.ops[prev:i], fmt.Sprintf("wait:%d", slot), "slot %d reused without a wait", slot)
		}
		lastSubmit[key] = i
	}
}

func TestFrameOrchestratorWaitsImageOwner(t *testing.T) {
	backend := newFakeFrameBackend(2, 3)
	fo, err := NewFrameOrchestrator(backend, 2, 3)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, fo.Draw())
	}

	// fourth draw runs on slot 1 and gets image 0, last submitted by slot 0
	tail := backend.ops[len(backend.ops)-8:]
	assert.Equal(t, []string{"wait:1", "reset:1", "acquire:0", "wait:0", "record:0", "uniforms:0", "submit:1", "present:0"}, tail)
}

func TestFrameOrchestratorNeverExceedsFramesInFlight(t *testing.T) {
	for _, tc := range []struct {
		frames, images uint32
	}{
		{1, 2}, {2, 2}, {2, 3}, {3, 3}, {3, 4}, {2, 5},
	} {
		t.Run(fmt.Sprintf("k%d_n%d", tc.frames, tc.images), func(t *testing.T) {
			backend := newFakeFrameBackend(tc.frames, tc.images)
			fo, err := NewFrameOrchestrator(backend, tc.frames, tc.images)
			require.NoError(t, err)
			for i := 0; i < 20; i++ {
				require.NoError(t, fo.Draw())
				assert.Equal(t, FRAME_SLOT_IDLE, fo.SlotState((fo.CurrentFrame()+tc.frames-1)%tc.frames))
			}
			assert.LessOrEqual(t, backend.maxPending, int(tc.frames))
			assert.Len(t, backend.uniformWrites, int(tc.images))
		})
	}
}

func TestFrameOrchestratorErrorsStopTheFrame(t *testing.T) {
	for _, tc := range []struct {
		op    string
		state FrameSlotState
	}{
		{"wait", FRAME_SLOT_IDLE},
		{"acquire", FRAME_SLOT_ACQUIRING},
		{"record", FRAME_SLOT_RECORDING},
		{"submit", FRAME_SLOT_RECORDING},
		{"present", FRAME_SLOT_PRESENTING},
	} {
		t.Run(tc.op, func(t *testing.T) {
			backend := newFakeFrameBackend(2, 3)
			backend.failOn = tc.op
			fo, err := NewFrameOrchestrator(backend, 2, 3)
			require.NoError(t, err)

			err = fo.Draw()
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrFrameSubmission))
			assert.Equal(t, uint32(0), fo.CurrentFrame())
			assert.Equal(t, uint64(0), fo.FrameNumber)
			assert.Equal(t, tc.state, fo.SlotState(0))
		})
	}
}

func TestNewFrameOrchestratorBounds(t *testing.T) {
	_, err := NewFrameOrchestrator(nil, 0, 3)
	assert.Error(t, err)
	_, err = NewFrameOrchestrator(nil, MaxFramesInFlight+1, 3)
	assert.Error(t, err)
	_, err = NewFrameOrchestrator(nil, 2, 0)
	assert.Error(t, err)
}

func TestFrameSlotStateString(t *testing.T) {
	assert.Equal(t, "presenting", FRAME_SLOT_PRESENTING.String())
	assert.Equal(t, "unknown", FrameSlotState(42).String())
}
