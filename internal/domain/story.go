package domain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StoryStep is a preset view with a caption.
type StoryStep struct {
	Title   string     `json:"title" yaml:"title"`
	Caption string     `json:"caption" yaml:"caption"`
	From    int        `json:"from" yaml:"from"`
	To      int        `json:"to" yaml:"to"`
	Mode    MetricMode `json:"mode" yaml:"mode"`
}

// ViewConfig returns the view this step shows, smoothed with window.
func (s StoryStep) ViewConfig(window int) ViewConfig {
	return ViewConfig{Mode: s.Mode, Window: window, From: s.From, To: s.To}
}

// Story is an ordered list of steps. Step indices wrap in both directions.
type Story []StoryStep

// Step returns the step at i modulo the story length and the wrapped index.
// It returns false for an empty story.
func (s Story) Step(i int) (StoryStep, int, bool) {
	if len(s) == 0 {
		return StoryStep{}, 0, false
	}
	idx := ((i % len(s)) + len(s)) % len(s)
	return s[idx], idx, true
}

// DefaultStory walks through the main features of the temperature record.
func DefaultStory() Story {
	return Story{
		{
			Title:   "Cool mid-20th century",
			Caption: "Mid-century anomalies mostly below zero, a cooler baseline.",
			From:    1960,
			To:      1975,
			Mode:    ModeTempAnomaly,
		},
		{
			Title:   "1998 El Niño spike",
			Caption: "1998 marks an extraordinary spike linked to El Niño.",
			From:    1988,
			To:      2000,
			Mode:    ModeBoth,
		},
		{
			Title:   "2016 record warmth",
			Caption: "2016 sets a new record; the warming trend is unmistakable.",
			From:    2009,
			To:      2017,
			Mode:    ModeTempAnomaly,
		},
		{
			Title:   "Recent highs",
			Caption: "CO2 crosses 420 ppm while temperatures remain elevated.",
			From:    2015,
			To:      2024,
			Mode:    ModeBoth,
		},
	}
}

type storyFile struct {
	Steps []StoryStep `yaml:"steps"`
}

// LoadStory reads a YAML story file of the form:
//
//	steps:
//	  - title: Recent highs
//	    caption: CO2 crosses 420 ppm.
//	    from: 2015
//	    to: 2024
//	    mode: both
func LoadStory(path string) (Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read story: %w", err)
	}

	var f storyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse story: %w", err)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("parse story: %s has no steps", path)
	}

	for i, step := range f.Steps {
		if err := step.ViewConfig(0).Validate(); err != nil {
			return nil, fmt.Errorf("parse story: step %d: %w", i, err)
		}
	}
	return Story(f.Steps), nil
}
