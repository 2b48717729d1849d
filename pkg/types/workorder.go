package types

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// WorkOrderNumber identifies a maintenance work order.
type WorkOrderNumber uint64

// IsDummy reports whether the number is the reserved sentinel used to
// anchor the ends of a worker's timeline.
func (n WorkOrderNumber) IsDummy() bool {
	return n == 0
}

// ActivityNumber keys an activity within its work order.
type ActivityNumber int

// WorkOrderActivity addresses a single activity across the system.
type WorkOrderActivity struct {
	WorkOrderNumber WorkOrderNumber `json:"work_order_number"`
	ActivityNumber  ActivityNumber  `json:"activity_number"`
}

func (woa WorkOrderActivity) String() string {
	return fmt.Sprintf("%d/%d", woa.WorkOrderNumber, woa.ActivityNumber)
}

// MarshalText encodes the pair as "<number>/<activity>" so it can key
// JSON maps in persisted snapshots.
func (woa WorkOrderActivity) MarshalText() ([]byte, error) {
	return []byte(woa.String()), nil
}

// UnmarshalText decodes the "<number>/<activity>" form.
func (woa *WorkOrderActivity) UnmarshalText(text []byte) error {
	var number uint64
	var activity int
	if _, err := fmt.Sscanf(string(text), "%d/%d", &number, &activity); err != nil {
		return fmt.Errorf("invalid work order activity %q: %w", text, err)
	}
	woa.WorkOrderNumber = WorkOrderNumber(number)
	woa.ActivityNumber = ActivityNumber(activity)
	return nil
}

// WorkOrderType classifies a work order for weighting purposes.
type WorkOrderType string

const (
	TypeWDF   WorkOrderType = "WDF"
	TypeWGN   WorkOrderType = "WGN"
	TypeWPM   WorkOrderType = "WPM"
	TypeWRO   WorkOrderType = "WRO"
	TypeOther WorkOrderType = "Other"
)

// Priority is an integer or character work order priority. Char is zero
// for integer priorities.
type Priority struct {
	Int  int  `json:"int"`
	Char rune `json:"char"`
}

// IntPriority builds an integer priority.
func IntPriority(i int) Priority { return Priority{Int: i} }

// CharPriority builds a character priority.
func CharPriority(c rune) Priority { return Priority{Char: c} }

// IsChar reports whether the priority is character-valued.
func (p Priority) IsChar() bool { return p.Char != 0 }

func (p Priority) String() string {
	if p.IsChar() {
		return string(p.Char)
	}
	return fmt.Sprintf("%d", p.Int)
}

// Revision marks the maintenance revision a work order belongs to.
// Shutdown revisions can only run during a turnaround, which keeps them
// out of the near periods.
type Revision struct {
	Code     string `json:"code"`
	Shutdown bool   `json:"shutdown"`
}

// FunctionalLocation ties a work order to physical equipment and thereby
// to an asset.
type FunctionalLocation struct {
	Raw   string `json:"raw"`
	Asset Asset  `json:"asset"`
}

// ActivityRelation describes the precedence between consecutive
// activities of a work order.
type ActivityRelation string

const (
	RelationStartStart  ActivityRelation = "start-start"
	RelationFinishStart ActivityRelation = "finish-start"
	RelationPostpone    ActivityRelation = "postpone"
)

// Operation is the smallest unit of work within a work order. Work
// remaining decreases only via completion events from outside; the
// scheduler treats it as read-only.
type Operation struct {
	Activity        ActivityNumber   `json:"activity"`
	Resource        Resource         `json:"resource"`
	WorkerCount     int              `json:"worker_count"`
	Work            float64          `json:"work"`
	OperatingTime   float64          `json:"operating_time"`
	PreparationTime float64          `json:"preparation_time"`
	PlannedStart    time.Time        `json:"planned_start"`
	PlannedFinish   time.Time        `json:"planned_finish"`
	Relation        ActivityRelation `json:"relation"`
}

// WrenchDuration is the contiguous wrench time one worker spends on the
// operation: the remaining work split across the assigned headcount.
func (o *Operation) WrenchDuration() time.Duration {
	count := o.WorkerCount
	if count < 1 {
		count = 1
	}
	hours := o.Work / float64(count)
	return time.Duration(hours * float64(time.Hour))
}

// WorkOrder is the catalog entry for one maintenance job.
type WorkOrder struct {
	Number             WorkOrderNumber              `json:"number"`
	MainResource       Resource                     `json:"main_resource"`
	Operations         map[ActivityNumber]*Operation `json:"operations"`
	SystemStatus       SystemStatus                 `json:"system_status"`
	UserStatus         UserStatus                   `json:"user_status"`
	Revision           Revision                     `json:"revision"`
	FunctionalLocation FunctionalLocation           `json:"functional_location"`
	Type               WorkOrderType                `json:"type"`
	Priority           Priority                     `json:"priority"`
	UnloadingPoint     string                       `json:"unloading_point"`
	EarliestStart      time.Time                    `json:"earliest_start"`
	LatestFinish       time.Time                    `json:"latest_finish"`
}

// Validate checks the work order invariants.
func (w *WorkOrder) Validate() error {
	if w.EarliestStart.After(w.LatestFinish) {
		return fmt.Errorf("work order %d: earliest start %s after latest finish %s",
			w.Number, w.EarliestStart.Format(time.RFC3339), w.LatestFinish.Format(time.RFC3339))
	}
	if len(w.Operations) == 0 {
		return fmt.Errorf("work order %d: no operations", w.Number)
	}
	for activity, op := range w.Operations {
		if op.Work < 0 {
			return fmt.Errorf("work order %d activity %d: negative work remaining %.2f",
				w.Number, activity, op.Work)
		}
	}
	return nil
}

// Load sums work remaining per craft; the result is the work order's load
// vector against strategic capacities.
func (w *WorkOrder) Load() (map[Resource]float64, error) {
	load := make(map[Resource]float64)
	for activity, op := range w.Operations {
		if op.Work < 0 {
			return nil, fmt.Errorf("work order %d activity %d: negative work remaining %.2f",
				w.Number, activity, op.Work)
		}
		load[op.Resource] += math.Round(op.Work)
	}
	return load, nil
}

// TotalWork returns the summed hours across all operations.
func (w *WorkOrder) TotalWork() float64 {
	var total float64
	for _, op := range w.Operations {
		total += op.Work
	}
	return total
}

// Vendor reports whether any operation needs a vendor craft.
func (w *WorkOrder) Vendor() bool {
	for _, op := range w.Operations {
		if op.Resource.IsVendor() {
			return true
		}
	}
	return false
}

// SortedActivities returns activity numbers in ascending order.
func (w *WorkOrder) SortedActivities() []ActivityNumber {
	activities := make([]ActivityNumber, 0, len(w.Operations))
	for a := range w.Operations {
		activities = append(activities, a)
	}
	sort.Slice(activities, func(i, j int) bool { return activities[i] < activities[j] })
	return activities
}

// EarliestAllowedStartPeriod is the later of the period containing the
// earliest allowed start date and the period the material status pushes
// the work order to.
func (w *WorkOrder) EarliestAllowedStartPeriod(periods []Period, offsets MaterialOffsets) Period {
	datePeriod := DateToPeriod(periods, w.EarliestStart)
	offset := offsets.Offset(w.UserStatus.MaterialStatus())
	if offset >= len(periods) {
		offset = len(periods) - 1
	}
	materialPeriod := periods[offset]
	if materialPeriod.ID > datePeriod.ID {
		return materialPeriod
	}
	return datePeriod
}

// LatestAllowedFinishPeriod is the period containing the latest allowed
// finish date.
func (w *WorkOrder) LatestAllowedFinishPeriod(periods []Period) Period {
	return DateToPeriod(periods, w.LatestFinish)
}

// ExcludedPeriods derives the set of period ids the work order must not be
// scheduled into: everything before the earliest allowed start period,
// plus the first four periods for vendor orders and shutdown revisions.
func (w *WorkOrder) ExcludedPeriods(periods []Period, offsets MaterialOffsets) map[int]struct{} {
	earliest := w.EarliestAllowedStartPeriod(periods, offsets)
	excluded := make(map[int]struct{})
	for i, p := range periods {
		if p.ID < earliest.ID || ((w.Vendor() || w.Revision.Shutdown) && i <= 3) {
			excluded[p.ID] = struct{}{}
		}
	}
	return excluded
}

// WeightConfig carries the weight maps used to rank work orders. The maps
// are injected into actor construction from the configuration source.
type WeightConfig struct {
	OrderTypeWeights map[string]uint64 `mapstructure:"order_type_weights" json:"order_type_weights" validate:"required"`
	StatusWeights    map[string]uint64 `mapstructure:"status_weights" json:"status_weights" validate:"required"`
	WdfPriorityMap   map[string]uint64 `mapstructure:"wdf_priority_map" json:"wdf_priority_map" validate:"required"`
	WgnPriorityMap   map[string]uint64 `mapstructure:"wgn_priority_map" json:"wgn_priority_map" validate:"required"`
	WpmPriorityMap   map[string]uint64 `mapstructure:"wpm_priority_map" json:"wpm_priority_map" validate:"required"`
	Clustering       ClusteringWeights `mapstructure:"clustering" json:"clustering"`
}

// ClusteringWeights score how strongly work orders sharing a location
// hierarchy attract each other during placement.
type ClusteringWeights struct {
	Asset        uint64 `mapstructure:"asset" json:"asset"`
	Sector       uint64 `mapstructure:"sector" json:"sector"`
	System       uint64 `mapstructure:"system" json:"system"`
	Subsystem    uint64 `mapstructure:"subsystem" json:"subsystem"`
	EquipmentTag uint64 `mapstructure:"equipment_tag" json:"equipment_tag"`
}

// Weight computes the work order's scheduling weight: the type and
// priority base value plus status bonuses, scaled by the total hours of
// work. Used both for queue ordering and in the strategic objective.
func (w *WorkOrder) Weight(cfg *WeightConfig) (uint64, error) {
	base, err := w.baseValue(cfg)
	if err != nil {
		return 0, fmt.Errorf("work order %d: %w", w.Number, err)
	}

	var status uint64
	if w.UserStatus.AWSC {
		status += cfg.StatusWeights["AWSC"]
	}
	if w.UserStatus.SECE {
		status += cfg.StatusWeights["SECE"]
	}
	if (w.SystemStatus.PCNF && w.SystemStatus.NMAT) || w.UserStatus.SMAT {
		status += cfg.StatusWeights["PCNF_NMAT_SMAT"]
	}

	return (base + status) * uint64(w.TotalWork()), nil
}

func (w *WorkOrder) baseValue(cfg *WeightConfig) (uint64, error) {
	switch w.Type {
	case TypeWDF:
		return priorityLookup(cfg.WdfPriorityMap, w.Priority, cfg.OrderTypeWeights["WDF"])
	case TypeWGN:
		return priorityLookup(cfg.WgnPriorityMap, w.Priority, cfg.OrderTypeWeights["WGN"])
	case TypeWPM:
		return charPriorityLookup(cfg.WpmPriorityMap, w.Priority, cfg.OrderTypeWeights["WPM"])
	case TypeWRO:
		if w.Priority.IsChar() {
			return charPriorityLookup(cfg.WpmPriorityMap, w.Priority, cfg.OrderTypeWeights["WPM"])
		}
		return priorityLookup(cfg.WgnPriorityMap, w.Priority, cfg.OrderTypeWeights["WGN"])
	case TypeOther:
		return cfg.OrderTypeWeights["Other"], nil
	default:
		return 0, fmt.Errorf("unknown work order type %q", w.Type)
	}
}

func priorityLookup(priorityMap map[string]uint64, p Priority, typeWeight uint64) (uint64, error) {
	if p.IsChar() || p.Int < 0 || p.Int > 8 {
		return 0, fmt.Errorf("invalid integer priority %s", p)
	}
	value, ok := priorityMap[fmt.Sprintf("%d", p.Int)]
	if !ok {
		return 0, fmt.Errorf("priority %s missing from priority map", p)
	}
	return value * typeWeight, nil
}

func charPriorityLookup(priorityMap map[string]uint64, p Priority, typeWeight uint64) (uint64, error) {
	if !p.IsChar() || p.Char < 'A' || p.Char > 'D' {
		return 0, fmt.Errorf("invalid character priority %s", p)
	}
	value, ok := priorityMap[strings.ToUpper(string(p.Char))]
	if !ok {
		return 0, fmt.Errorf("priority %s missing from priority map", p)
	}
	return value * typeWeight, nil
}
