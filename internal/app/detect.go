package app

import (
	"go.uber.org/zap"
)

// runDetectionLoop consumes assembled market snapshots, runs the
// detectors and forwards profitable opportunities to the executor.
func (a *App) runDetectionLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			a.logger.Info("detection-loop-stopping")
			return

		case snap, ok := <-a.bookManager.UpdateChan():
			if !ok {
				return
			}

			opp := a.detector.Detect(snap)
			if opp == nil {
				continue
			}

			err := a.storage.StoreOpportunity(a.ctx, opp)
			if err != nil {
				a.logger.Error("failed-to-store-opportunity",
					zap.String("opportunity-id", opp.ID),
					zap.Error(err))
			}

			select {
			case a.oppChan <- opp:
			default:
				a.logger.Warn("opportunity-channel-full",
					zap.String("opportunity-id", opp.ID),
					zap.String("strategy", string(opp.Strategy)))
			}
		}
	}
}
