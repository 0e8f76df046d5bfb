package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-deferred/engine/core"
)

// frameBackend performs the GPU side of each step of a frame. Slots index the
// frame-in-flight pool, image indices the swapchain.
type frameBackend interface {
	WaitForFrame(slot uint32) error
	ResetFrame(slot uint32) error
	AcquireNextImage(slot uint32) (uint32, error)
	RecordCommands(imageIndex uint32) error
	UpdateUniforms(imageIndex uint32) error
	Submit(slot, imageIndex uint32) error
	Present(slot, imageIndex uint32) error
}

const noOwner int32 = -1

// FrameOrchestrator drives acquire, record, submit and present over a fixed
// number of frame slots. A slot is reused only after its fence was waited on.
type FrameOrchestrator struct {
	backend        frameBackend
	framesInFlight uint32
	currentFrame   uint32

	// slot whose submission last used each swapchain image
	imagesInFlight []int32
	states         []FrameSlotState

	FrameNumber uint64
}

func NewFrameOrchestrator(backend frameBackend, framesInFlight, imageCount uint32) (*FrameOrchestrator, error) {
	if framesInFlight == 0 || framesInFlight > MaxFramesInFlight {
		return nil, errors.Wrapf(core.ErrResourceCreation, "frames in flight must be in [1, %d], got %d", MaxFramesInFlight, framesInFlight)
	}
	if imageCount == 0 {
		return nil, errors.Wrap(core.ErrResourceCreation, "swapchain has no images")
	}
	fo := &FrameOrchestrator{
		backend:        backend,
		framesInFlight: framesInFlight,
		imagesInFlight: make([]int32, imageCount),
		states:         make([]FrameSlotState, framesInFlight),
	}
	for i := range fo.imagesInFlight {
		fo.imagesInFlight[i] = noOwner
	}
	return fo, nil
}

func (fo *FrameOrchestrator) CurrentFrame() uint32 {
	return fo.currentFrame
}

func (fo *FrameOrchestrator) FramesInFlight() uint32 {
	return fo.framesInFlight
}

func (fo *FrameOrchestrator) SlotState(slot uint32) FrameSlotState {
	if slot >= fo.framesInFlight {
		return FRAME_SLOT_IDLE
	}
	return fo.states[slot]
}

// Draw renders and presents one frame. Any failure is returned wrapped and the
// current slot is not advanced.
func (fo *FrameOrchestrator) Draw() error {
	slot := fo.currentFrame

	if err := fo.backend.WaitForFrame(slot); err != nil {
		return errors.Wrapf(err, "frame %d: wait slot %d", fo.FrameNumber, slot)
	}
	if err := fo.backend.ResetFrame(slot); err != nil {
		return errors.Wrapf(err, "frame %d: reset slot %d", fo.FrameNumber, slot)
	}

	fo.states[slot] = FRAME_SLOT_ACQUIRING
	imageIndex, err := fo.backend.AcquireNextImage(slot)
	if err != nil {
		return errors.Wrapf(err, "frame %d: acquire", fo.FrameNumber)
	}
	if int(imageIndex) >= len(fo.imagesInFlight) {
		return errors.Wrapf(core.ErrFrameSubmission, "frame %d: acquired image %d out of %d", fo.FrameNumber, imageIndex, len(fo.imagesInFlight))
	}

	// The image may still be read by another slot's submission. This slot's
	// own fence was already waited on above.
	if owner := fo.imagesInFlight[imageIndex]; owner != noOwner && uint32(owner) != slot {
		if err := fo.backend.WaitForFrame(uint32(owner)); err != nil {
			return errors.Wrapf(err, "frame %d: wait image %d owner %d", fo.FrameNumber, imageIndex, owner)
		}
	}
	fo.imagesInFlight[imageIndex] = int32(slot)

	fo.states[slot] = FRAME_SLOT_RECORDING
	if err := fo.backend.RecordCommands(imageIndex); err != nil {
		return errors.Wrapf(err, "frame %d: record image %d", fo.FrameNumber, imageIndex)
	}
	if err := fo.backend.UpdateUniforms(imageIndex); err != nil {
		return errors.Wrapf(err, "frame %d: uniforms image %d", fo.FrameNumber, imageIndex)
	}

	if err := fo.backend.Submit(slot, imageIndex); err != nil {
		return errors.Wrapf(err, "frame %d: submit", fo.FrameNumber)
	}
	fo.states[slot] = FRAME_SLOT_SUBMITTED

	fo.states[slot] = FRAME_SLOT_PRESENTING
	if err := fo.backend.Present(slot, imageIndex); err != nil {
		return errors.Wrapf(err, "frame %d: present image %d", fo.FrameNumber, imageIndex)
	}
	fo.states[slot] = FRAME_SLOT_IDLE

	fo.currentFrame = (slot + 1) % fo.framesInFlight
	fo.FrameNumber++
	return nil
}
