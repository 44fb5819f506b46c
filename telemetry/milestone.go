package telemetry

import (
	"fmt"
	"log/slog"
	"sort"
)

// MilestoneType identifies the type of milestone.
type MilestoneType string

const (
	MilestoneBottleneck   MilestoneType = "bottleneck"
	MilestoneBreakthrough MilestoneType = "breakthrough"
	MilestoneConvergence  MilestoneType = "convergence"
	MilestoneExtinction   MilestoneType = "extinction"
)

// Milestone marks a notable generation in a run.
type Milestone struct {
	Type        MilestoneType `csv:"type"`
	Generation  int           `csv:"generation"`
	Description string        `csv:"description"`
}

// LogValue implements slog.LogValuer.
func (m Milestone) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", string(m.Type)),
		slog.Int("generation", m.Generation),
		slog.String("description", m.Description),
	)
}

// LogMilestone logs the milestone using the given logger.
func (m Milestone) LogMilestone(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("milestone",
		"type", string(m.Type),
		"generation", m.Generation,
		"description", m.Description,
	)
}

// MilestoneDetector watches generation summaries for notable moments.
type MilestoneDetector struct {
	// Rolling history (circular buffer)
	history     []GenerationSummary
	historySize int
	historyIdx  int
	historyFull bool

	breakthroughFactor  float64
	convergenceFraction float64
	spans               map[string]float64 // Continuous trait name -> domain width

	converged bool // Suppresses repeat convergence milestones until traits spread again
}

// NewMilestoneDetector creates a detector.
// spans lists the continuous traits checked for convergence, with their domain widths.
func NewMilestoneDetector(historySize int, breakthroughFactor, convergenceFraction float64, spans map[string]float64) *MilestoneDetector {
	if historySize < 3 {
		historySize = 3 // minimum for a meaningful rolling average
	}
	cp := make(map[string]float64, len(spans))
	for k, v := range spans {
		cp[k] = v
	}
	return &MilestoneDetector{
		history:             make([]GenerationSummary, historySize),
		historySize:         historySize,
		breakthroughFactor:  breakthroughFactor,
		convergenceFraction: convergenceFraction,
		spans:               cp,
	}
}

// Check analyzes the latest summary and returns any triggered milestones.
func (md *MilestoneDetector) Check(s GenerationSummary) []Milestone {
	var milestones []Milestone

	if m := md.checkExtinction(s); m != nil {
		milestones = append(milestones, *m)
	}
	if m := md.checkBottleneck(s); m != nil {
		milestones = append(milestones, *m)
	}
	if m := md.checkBreakthrough(s); m != nil {
		milestones = append(milestones, *m)
	}
	if m := md.checkConvergence(s); m != nil {
		milestones = append(milestones, *m)
	}

	md.addToHistory(s)
	return milestones
}

func (md *MilestoneDetector) addToHistory(s GenerationSummary) {
	md.history[md.historyIdx] = s
	md.historyIdx = (md.historyIdx + 1) % md.historySize
	if md.historyIdx == 0 {
		md.historyFull = true
	}
}

func (md *MilestoneDetector) getHistory() []GenerationSummary {
	if md.historyFull {
		return md.history
	}
	return md.history[:md.historyIdx]
}

func (md *MilestoneDetector) checkExtinction(s GenerationSummary) *Milestone {
	if s.Survivors > 0 {
		return nil
	}
	desc := fmt.Sprintf("All %d zorks culled", s.Population)
	if s.Population == 0 {
		desc = "Generation was empty"
	}
	return &Milestone{Type: MilestoneExtinction, Generation: s.Generation, Description: desc}
}

func (md *MilestoneDetector) checkBottleneck(s GenerationSummary) *Milestone {
	if s.Survivors != 1 {
		return nil
	}
	return &Milestone{
		Type:        MilestoneBottleneck,
		Generation:  s.Generation,
		Description: fmt.Sprintf("Single survivor out of %d; next generation is a self-cross", s.Population),
	}
}

func (md *MilestoneDetector) checkBreakthrough(s GenerationSummary) *Milestone {
	history := md.getHistory()
	if len(history) < 3 || s.Population == 0 || md.breakthroughFactor <= 0 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.MeanFitness
	}
	avg := total / float64(len(history))
	if avg <= 0 {
		return nil
	}

	if s.MeanFitness > avg*md.breakthroughFactor {
		return &Milestone{
			Type:        MilestoneBreakthrough,
			Generation:  s.Generation,
			Description: fmt.Sprintf("Mean fitness %.3f is %.2fx rolling average (%.3f)", s.MeanFitness, s.MeanFitness/avg, avg),
		}
	}
	return nil
}

func (md *MilestoneDetector) checkConvergence(s GenerationSummary) *Milestone {
	if len(md.spans) == 0 || s.Population < 2 || md.convergenceFraction <= 0 {
		return nil
	}

	for _, t := range s.Traits {
		span, ok := md.spans[t.Name]
		if !ok || span <= 0 {
			continue
		}
		if t.StdDev >= span*md.convergenceFraction {
			md.converged = false
			return nil
		}
	}

	if md.converged {
		return nil
	}
	md.converged = true

	names := make([]string, 0, len(md.spans))
	for name := range md.spans {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Milestone{
		Type:        MilestoneConvergence,
		Generation:  s.Generation,
		Description: fmt.Sprintf("Traits %v spread below %.1f%% of their domains", names, md.convergenceFraction*100),
	}
}
