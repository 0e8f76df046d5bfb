package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
)

// FrameSlotState is where a frame slot is in its per-frame cycle.
type FrameSlotState int

const (
	FRAME_SLOT_IDLE FrameSlotState = iota
	FRAME_SLOT_ACQUIRING
	FRAME_SLOT_RECORDING
	FRAME_SLOT_SUBMITTED
	FRAME_SLOT_PRESENTING
)

func (s FrameSlotState) String() string {
	switch s {
	case FRAME_SLOT_IDLE:
		return "idle"
	case FRAME_SLOT_ACQUIRING:
		return "acquiring"
	case FRAME_SLOT_RECORDING:
		return "recording"
	case FRAME_SLOT_SUBMITTED:
		return "submitted"
	case FRAME_SLOT_PRESENTING:
		return "presenting"
	}
	return "unknown"
}

// FrameSync holds the synchronization objects of one frame slot.
type FrameSync struct {
	ImageAvailable vk.Semaphore
	RenderFinished vk.Semaphore
	InFlight       *VulkanFence
}

type FrameSyncPool struct {
	Frames []FrameSync
}

// NewFrameSyncPool creates count frame slots. Fences start signaled so the
// first wait on every slot returns at once.
func NewFrameSyncPool(context *VulkanContext, count uint32) (*FrameSyncPool, error) {
	if count == 0 || count > MaxFramesInFlight {
		return nil, errors.Wrapf(core.ErrResourceCreation, "frames in flight must be in [1, %d], got %d", MaxFramesInFlight, count)
	}
	pool := &FrameSyncPool{Frames: make([]FrameSync, count)}

	semaphoreInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for i := range pool.Frames {
		frame := &pool.Frames[i]
		if err := checkResult(vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreInfo, context.Allocator, &frame.ImageAvailable), core.ErrResourceCreation, "vkCreateSemaphore"); err != nil {
			pool.Destroy(context)
			return nil, err
		}
		if err := checkResult(vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreInfo, context.Allocator, &frame.RenderFinished), core.ErrResourceCreation, "vkCreateSemaphore"); err != nil {
			pool.Destroy(context)
			return nil, err
		}
		fence, err := NewFence(context, true)
		if err != nil {
			pool.Destroy(context)
			return nil, err
		}
		frame.InFlight = fence
	}
	return pool, nil
}

func (p *FrameSyncPool) Destroy(context *VulkanContext) {
	for i := range p.Frames {
		frame := &p.Frames[i]
		if frame.ImageAvailable != vk.NullSemaphore {
			vk.DestroySemaphore(context.Device.LogicalDevice, frame.ImageAvailable, context.Allocator)
			frame.ImageAvailable = vk.NullSemaphore
		}
		if frame.RenderFinished != vk.NullSemaphore {
			vk.DestroySemaphore(context.Device.LogicalDevice, frame.RenderFinished, context.Allocator)
			frame.RenderFinished = vk.NullSemaphore
		}
		if frame.InFlight != nil {
			frame.InFlight.FenceDestroy(context)
			frame.InFlight = nil
		}
	}
	p.Frames = nil
}
