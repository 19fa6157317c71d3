package session

import (
	"context"

	"go.uber.org/zap"

	"dotatimings/internal/core/catalog"
	"dotatimings/internal/core/model"
	"dotatimings/internal/core/scheduler"
)

// RoshanKilled records a Roshan kill and arms the aegis and respawn window
// countdowns. Countdowns of a previous kill are superseded.
func (session *Session) RoshanKilled(ctx context.Context) error {
	return session.call(ctx, "roshan killed", session.roshanKilled)
}

// DireTormentorKilled records a Dire tormentor kill and arms its respawn.
func (session *Session) DireTormentorKilled(ctx context.Context) error {
	return session.call(ctx, "dire tormentor killed", func() error {
		return session.tormentorKilled(&session.direAvailable, catalog.DireTormentorKilled, scheduler.KeyDireTormentorRespawn, catalog.DireTormentorRespawned)
	})
}

// RadiantTormentorKilled records a Radiant tormentor kill and arms its
// respawn.
func (session *Session) RadiantTormentorKilled(ctx context.Context) error {
	return session.call(ctx, "radiant tormentor killed", func() error {
		return session.tormentorKilled(&session.radiantAvailable, catalog.RadiantTormentorKilled, scheduler.KeyRadiantTormentorRespawn, catalog.RadiantTormentorRespawned)
	})
}

func (session *Session) roshanKilled() error {
	if session.state != StateRunning {
		return model.NewInvalidState("roshan killed", session.state)
	}
	if !session.roshanAvailable {
		return ErrActionUnavailable
	}
	roshan := session.config.Roshan
	session.emit(catalog.RoshanKilled, session.keeper.Elapsed(), roshan.RespawnMin/60, roshan.RespawnMax/60)
	session.roshanAvailable = false
	session.roshanKills++
	session.roshanStatus = RoshanKilled

	session.timers.Arm(scheduler.KeyRoshanAegis, roshan.AegisDuration, catalog.AegisExpired)
	session.timers.Arm(scheduler.KeyRoshanRespawnMin, roshan.RespawnMin, catalog.RoshanRespawnMin)
	session.timers.Arm(scheduler.KeyRoshanRespawnMax, roshan.RespawnMax, catalog.RoshanRespawnMax)

	session.logger.Info("roshan killed", zap.Int("elapsed", session.keeper.Elapsed()), zap.Int("kills", session.roshanKills))
	session.publishState()
	return nil
}

func (session *Session) tormentorKilled(available *bool, killed catalog.Kind, key scheduler.Key, respawned catalog.Kind) error {
	if session.state != StateRunning {
		return model.NewInvalidState(string(killed), session.state)
	}
	if !*available {
		return ErrActionUnavailable
	}
	respawn := session.config.TormentorRespawn
	session.emit(killed, session.keeper.Elapsed(), respawn/60)
	*available = false
	session.timers.Arm(key, respawn, respawned)

	session.logger.Info("tormentor killed", zap.String("kind", string(killed)), zap.Int("elapsed", session.keeper.Elapsed()))
	session.publishState()
	return nil
}

// onTimer handles a countdown that ran to completion.
func (session *Session) onTimer(timer scheduler.Timer) {
	switch timer.Kind {
	case catalog.AegisExpired:
		if session.roshanStatus == RoshanKilled {
			session.roshanStatus = RoshanAegisGone
		}
	case catalog.RoshanRespawnMin:
		session.roshanAvailable = true
		session.roshanStatus = RoshanMayRespawn
	case catalog.RoshanRespawnMax:
		session.roshanStatus = RoshanAlive
	case catalog.DireTormentorRespawned:
		session.direAvailable = true
	case catalog.RadiantTormentorRespawned:
		session.radiantAvailable = true
	}
	session.emit(timer.Kind, timer.DueSecond)
}
