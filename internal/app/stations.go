package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/large-farva/groundwatch/internal/config"
	"github.com/large-farva/groundwatch/internal/satnogs"
	"github.com/large-farva/groundwatch/internal/station"
)

const (
	stationFetchTimeout = 10 * time.Second
	stationFetchLimit   = 4
)

// StationFetcher is the part of the network client used at startup.
type StationFetcher interface {
	StationInfo(ctx context.Context, id uint64) (satnogs.Station, error)
}

// LoadStations builds the initial state, fetching every configured station's
// record concurrently. A station whose record cannot be fetched starts with
// only its id; the dashboard asks for it again once running. The cursor
// starts on the lowest id.
func LoadStations(ctx context.Context, api StationFetcher, cfg config.Config, log *slog.Logger) *station.State {
	infos := make([]satnogs.Station, len(cfg.Stations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stationFetchLimit)
	for i, sc := range cfg.Stations {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, stationFetchTimeout)
			defer cancel()

			info, err := api.StationInfo(fctx, sc.ID)
			if err != nil {
				log.Warn("failed to fetch station info", "station", sc.ID, "err", err)
				info = satnogs.Station{}
			}
			info.ID = sc.ID
			infos[i] = info
			return nil
		})
	}
	_ = g.Wait()

	state := station.NewState()
	for _, info := range infos {
		state.AddStation(station.New(info, nil))
	}
	if ids := state.IDs(); len(ids) > 0 {
		state.Active = ids[0]
	}
	return state
}
