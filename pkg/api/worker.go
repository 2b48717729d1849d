package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/bosunhq/bosun/pkg/environment"
	"github.com/bosunhq/bosun/pkg/types"
)

// toWorker converts the request into a validated worker belonging to the
// asset.
func (req *CreateOperationalRequest) toWorker(asset types.Asset) (*types.Worker, error) {
	resources := make([]types.Resource, 0, len(req.Resources))
	for _, r := range req.Resources {
		resource, err := types.ParseResource(r)
		if err != nil {
			return nil, err
		}
		resources = append(resources, resource)
	}

	parts := strings.SplitN(req.Available, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid availability %q, want <start>/<finish>", req.Available)
	}
	start, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid availability start: %w", err)
	}
	finish, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid availability finish: %w", err)
	}

	breakIv, err := environment.ParseShift(req.Break)
	if err != nil {
		return nil, fmt.Errorf("break: %w", err)
	}
	offShift, err := environment.ParseShift(req.OffShift)
	if err != nil {
		return nil, fmt.Errorf("off-shift: %w", err)
	}
	toolbox, err := environment.ParseShift(req.Toolbox)
	if err != nil {
		return nil, fmt.Errorf("toolbox: %w", err)
	}

	worker := &types.Worker{
		ID:           types.WorkerID(req.ID),
		Asset:        asset,
		Resources:    resources,
		Availability: types.Availability{Start: start, Finish: finish},
		Break:        breakIv,
		OffShift:     offShift,
		Toolbox:      toolbox,
	}
	if err := worker.Validate(); err != nil {
		return nil, err
	}
	return worker, nil
}
