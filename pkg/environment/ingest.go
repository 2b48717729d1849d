package environment

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bosunhq/bosun/pkg/types"
)

// Document is the YAML shape of an environment ingest file. It mirrors
// what the spreadsheet/database ingesters produce upstream and exists so
// tests and small deployments can bootstrap a catalog from a file.
type Document struct {
	Horizon    HorizonDoc      `yaml:"horizon"`
	Capacities []CapacityDoc   `yaml:"capacities"`
	WorkOrders []WorkOrderDoc  `yaml:"workOrders"`
	Workers    []WorkerDoc     `yaml:"workers"`
}

type HorizonDoc struct {
	Start   string `yaml:"start"`
	Periods int    `yaml:"periods"`
	Days    int    `yaml:"days"`
}

type CapacityDoc struct {
	Resource       string  `yaml:"resource"`
	HoursPerPeriod float64 `yaml:"hoursPerPeriod"`
	HoursPerDay    float64 `yaml:"hoursPerDay"`
}

type WorkOrderDoc struct {
	Number             uint64         `yaml:"number"`
	Asset              string         `yaml:"asset"`
	FunctionalLocation string         `yaml:"functionalLocation"`
	MainResource       string         `yaml:"mainResource"`
	Type               string         `yaml:"type"`
	Priority           string         `yaml:"priority"`
	Revision           string         `yaml:"revision"`
	Shutdown           bool           `yaml:"shutdown"`
	SystemStatus       string         `yaml:"systemStatus"`
	UserStatus         string         `yaml:"userStatus"`
	UnloadingPoint     string         `yaml:"unloadingPoint"`
	EarliestStart      string         `yaml:"earliestStart"`
	LatestFinish       string         `yaml:"latestFinish"`
	Operations         []OperationDoc `yaml:"operations"`
}

type OperationDoc struct {
	Activity      int     `yaml:"activity"`
	Resource      string  `yaml:"resource"`
	Workers       int     `yaml:"workers"`
	Work          float64 `yaml:"work"`
	OperatingTime float64 `yaml:"operatingTime"`
	Preparation   float64 `yaml:"preparation"`
}

type WorkerDoc struct {
	ID        string   `yaml:"id"`
	Asset     string   `yaml:"asset"`
	Resources []string `yaml:"resources"`
	Available string   `yaml:"available"` // "<start>/<finish>" RFC 3339
	Break     string   `yaml:"break"`     // "HH:MM-HH:MM"
	OffShift  string   `yaml:"offShift"`
	Toolbox   string   `yaml:"toolbox"`
}

// LoadFile reads an ingest document and builds the environment.
func LoadFile(path string) (*Environment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment file: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse environment file: %w", err)
	}
	return doc.Build()
}

// Build converts the document into an Environment via the Builder.
func (doc *Document) Build() (*Environment, error) {
	start, err := time.Parse("2006-01-02", doc.Horizon.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid horizon start: %w", err)
	}

	b := NewBuilder().
		Periods(doc.Horizon.Periods, start).
		Days(doc.Horizon.Days, start)

	for _, c := range doc.Capacities {
		resource, err := types.ParseResource(c.Resource)
		if err != nil {
			return nil, fmt.Errorf("capacity entry: %w", err)
		}
		b.StrategicCapacity(resource, c.HoursPerPeriod)
		b.TacticalCapacity(resource, c.HoursPerDay)
	}

	for _, w := range doc.WorkOrders {
		wo, err := w.toWorkOrder()
		if err != nil {
			return nil, fmt.Errorf("work order %d: %w", w.Number, err)
		}
		b.WorkOrder(wo)
	}

	for _, w := range doc.Workers {
		worker, err := w.toWorker()
		if err != nil {
			return nil, fmt.Errorf("worker %s: %w", w.ID, err)
		}
		b.Worker(worker)
	}

	return b.Build()
}

func (w *WorkOrderDoc) toWorkOrder() (*types.WorkOrder, error) {
	mainResource, err := types.ParseResource(w.MainResource)
	if err != nil {
		return nil, err
	}
	earliest, err := time.Parse("2006-01-02", w.EarliestStart)
	if err != nil {
		return nil, fmt.Errorf("invalid earliest start: %w", err)
	}
	latest, err := time.Parse("2006-01-02", w.LatestFinish)
	if err != nil {
		return nil, fmt.Errorf("invalid latest finish: %w", err)
	}

	operations := make(map[types.ActivityNumber]*types.Operation, len(w.Operations))
	for _, op := range w.Operations {
		resource, err := types.ParseResource(op.Resource)
		if err != nil {
			return nil, fmt.Errorf("activity %d: %w", op.Activity, err)
		}
		operations[types.ActivityNumber(op.Activity)] = &types.Operation{
			Activity:        types.ActivityNumber(op.Activity),
			Resource:        resource,
			WorkerCount:     op.Workers,
			Work:            op.Work,
			OperatingTime:   op.OperatingTime,
			PreparationTime: op.Preparation,
			Relation:        types.RelationFinishStart,
		}
	}

	return &types.WorkOrder{
		Number:       types.WorkOrderNumber(w.Number),
		MainResource: mainResource,
		Operations:   operations,
		SystemStatus: types.ParseSystemStatus(w.SystemStatus),
		UserStatus:   types.ParseUserStatus(w.UserStatus),
		Revision:     types.Revision{Code: w.Revision, Shutdown: w.Shutdown},
		FunctionalLocation: types.FunctionalLocation{
			Raw:   w.FunctionalLocation,
			Asset: types.Asset(w.Asset),
		},
		Type:           types.WorkOrderType(w.Type),
		Priority:       parsePriority(w.Priority),
		UnloadingPoint: w.UnloadingPoint,
		EarliestStart:  earliest,
		LatestFinish:   latest,
	}, nil
}

func (w *WorkerDoc) toWorker() (*types.Worker, error) {
	resources := make([]types.Resource, 0, len(w.Resources))
	for _, r := range w.Resources {
		resource, err := types.ParseResource(r)
		if err != nil {
			return nil, err
		}
		resources = append(resources, resource)
	}

	availability, err := parseAvailability(w.Available)
	if err != nil {
		return nil, err
	}
	breakIv, err := ParseShift(w.Break)
	if err != nil {
		return nil, fmt.Errorf("break: %w", err)
	}
	offShift, err := ParseShift(w.OffShift)
	if err != nil {
		return nil, fmt.Errorf("off-shift: %w", err)
	}
	toolbox, err := ParseShift(w.Toolbox)
	if err != nil {
		return nil, fmt.Errorf("toolbox: %w", err)
	}

	return &types.Worker{
		ID:           types.WorkerID(w.ID),
		Asset:        types.Asset(w.Asset),
		Resources:    resources,
		Availability: availability,
		Break:        breakIv,
		OffShift:     offShift,
		Toolbox:      toolbox,
	}, nil
}

func parsePriority(s string) types.Priority {
	s = strings.TrimSpace(s)
	if len(s) == 1 && s[0] >= 'A' && s[0] <= 'Z' {
		return types.CharPriority(rune(s[0]))
	}
	var n int
	fmt.Sscanf(s, "%d", &n)
	return types.IntPriority(n)
}

func parseAvailability(s string) (types.Availability, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return types.Availability{}, fmt.Errorf("invalid availability %q, want <start>/<finish>", s)
	}
	start, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return types.Availability{}, fmt.Errorf("invalid availability start: %w", err)
	}
	finish, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return types.Availability{}, fmt.Errorf("invalid availability finish: %w", err)
	}
	return types.Availability{Start: start, Finish: finish}, nil
}

// ParseShift parses an "HH:MM-HH:MM" daily interval.
func ParseShift(s string) (types.TimeInterval, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return types.TimeInterval{}, fmt.Errorf("invalid shift interval %q, want HH:MM-HH:MM", s)
	}
	start, err := parseClock(parts[0])
	if err != nil {
		return types.TimeInterval{}, err
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return types.TimeInterval{}, err
	}
	return types.NewTimeInterval(start, end)
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
