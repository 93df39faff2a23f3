package systems

import (
	"github.com/spaghettifunk/ember/engine/audio"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/gpu"
)

/** @brief The configuration of every engine system */
type SystemManagerConfig struct {
	Audio AudioManagerConfig
	/** @brief Worker goroutines of the scheduler besides the caller. */
	SchedulerThreads int
}

type SystemManager struct {
	resourceManager *ResourceManager
	audioManager    *AudioManager
	scheduler       *Scheduler
}

/**
 * @brief Creates the resource manager, the scheduler and, when an audio
 * driver is given, an initialized audio manager.
 */
func NewSystemManager(config SystemManagerConfig, ctx *gpu.Context, audioDriver audio.Driver) (*SystemManager, error) {
	sm := &SystemManager{
		resourceManager: NewResourceManager(ctx),
		scheduler:       NewScheduler(config.SchedulerThreads),
	}

	if audioDriver != nil {
		am, err := NewAudioManager(config.Audio, audioDriver)
		if err != nil {
			return nil, err
		}
		if err := am.Init(); err != nil {
			// Init leaves partial state behind on failure
			am.Stop()
			return nil, err
		}
		sm.audioManager = am
	} else {
		core.LogWarn("No audio driver given, running without sound.")
	}
	return sm, nil
}

func (sm *SystemManager) Resources() *ResourceManager {
	return sm.resourceManager
}

// Audio returns the audio manager, or nil when running without sound.
func (sm *SystemManager) Audio() *AudioManager {
	return sm.audioManager
}

func (sm *SystemManager) Scheduler() *Scheduler {
	return sm.scheduler
}

func (sm *SystemManager) Shutdown() error {
	if err := sm.scheduler.Shutdown(); err != nil {
		return err
	}
	if sm.audioManager != nil {
		if err := sm.audioManager.Stop(); err != nil {
			return err
		}
	}
	if err := sm.resourceManager.Shutdown(); err != nil {
		return err
	}
	return nil
}
