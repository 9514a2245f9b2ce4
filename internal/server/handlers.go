package server

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/bandradio/radio-cache/internal/logging"
	"github.com/bandradio/radio-cache/internal/resource"
	"github.com/bandradio/radio-cache/internal/station"
)

type stationListPayload struct {
	Outcome  resource.Outcome  `json:"outcome"`
	Source   resource.Source   `json:"source"`
	Dropped  int               `json:"dropped"`
	Stations []station.Station `json:"stations"`
}

type streamInfoPayload struct {
	Outcome resource.Outcome `json:"outcome"`
	Source  resource.Source  `json:"source"`
	Stream  station.Stream   `json:"stream"`
}

func (d *Dispatcher) serveStationList(c fiber.Ctx, route *ResourceRoute) error {
	if c.Params("id") != "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "resource_takes_no_id"})
	}

	started := time.Now()
	result := route.Cache.FirstStationList(requestContext(c), route.Config.URL)
	d.logResult(c, route, result.Outcome, result.Source, result.Err, started)
	if !result.OK() {
		return renderOutcome(c, result.Outcome)
	}

	stations := result.Value
	if stations == nil {
		stations = []station.Station{}
	}
	return c.JSON(stationListPayload{
		Outcome:  result.Outcome,
		Source:   result.Source,
		Dropped:  result.Dropped,
		Stations: stations,
	})
}

func (d *Dispatcher) serveStreamInfo(c fiber.Ctx, route *ResourceRoute) error {
	rawID := strings.TrimSpace(c.Params("id"))
	if rawID == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "resource_requires_id"})
	}
	id, err := strconv.Atoi(rawID)
	if err != nil || id < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
	}

	started := time.Now()
	result := route.Cache.FirstStreamInfo(requestContext(c), route.Config.URL, id)
	d.logResult(c, route, result.Outcome, result.Source, result.Err, started)
	if !result.OK() {
		return renderOutcome(c, result.Outcome)
	}

	return c.JSON(streamInfoPayload{
		Outcome: result.Outcome,
		Source:  result.Source,
		Stream:  result.Value,
	})
}

// renderOutcome 把不可用结果映射为 502，正文只携带 outcome。
func renderOutcome(c fiber.Ctx, outcome resource.Outcome) error {
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": string(outcome)})
}

func requestContext(c fiber.Ctx) context.Context {
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func (d *Dispatcher) logResult(c fiber.Ctx, route *ResourceRoute, outcome resource.Outcome, source resource.Source, err error, started time.Time) {
	if d.logger == nil {
		return
	}
	fields := logging.RequestFields(route.Config.Name, route.Kind.Key, string(route.Policy), RequestID(c))
	fields["outcome"] = string(outcome)
	fields["source"] = string(source)
	fields["elapsed_ms"] = time.Since(started).Milliseconds()

	entry := d.logger.WithFields(fields)
	if outcome == resource.OutcomeOK {
		entry.Info("serve_completed")
		return
	}
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Warn("serve_failed")
}
