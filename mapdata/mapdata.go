// Package mapdata loads map definition files from disk and keeps them
// available by name, mirroring the teacher's pattern of a small read-only
// lookup store seeded at startup (spec.md §6: "the loader is an external
// collaborator"). Definitions are parsed with gopkg.in/yaml.v3, the same
// library the rest of the example pack reaches for whenever a repo needs
// structured config-file parsing.
package mapdata

import (
	"fmt"
)

// PostKind mirrors the map file's 1|2|3 type discriminator for posts.
type PostKind int

const (
	PostTown PostKind = iota + 1
	PostMarket
	PostStorage
)

// PostDef is one entry of a map file's posts list. Point is the 1-based
// index into Definition.Points this post sits on, matching the on-disk
// schema in spec.md §6.
type PostDef struct {
	Point         int      `yaml:"point"`
	Name          string   `yaml:"name"`
	Type          PostKind `yaml:"type"`
	Population    int      `yaml:"population"`
	Armor         int      `yaml:"armor"`
	Product       int      `yaml:"product"`
	Replenishment int      `yaml:"replenishment"`
}

// LineDef is one entry of a map file's lines list: [length, p0, p1], with
// p0/p1 1-based indices into Definition.Points.
type LineDef struct {
	Length int
	P0     int
	P1     int
}

// UnmarshalYAML decodes a LineDef from its compact [length, p0, p1] form.
func (l *LineDef) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw [3]int
	if err := unmarshal(&raw); err != nil {
		return err
	}
	l.Length, l.P0, l.P1 = raw[0], raw[1], raw[2]
	return nil
}

// PointDef is one [x, y] coordinate pair.
type PointDef struct {
	X, Y int
}

// UnmarshalYAML decodes a PointDef from its compact [x, y] form.
func (p *PointDef) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw [2]int
	if err := unmarshal(&raw); err != nil {
		return err
	}
	p.X, p.Y = raw[0], raw[1]
	return nil
}

// Definition is a fully parsed map file: graph shape plus post placements.
// It is immutable once loaded; game.Instance materializes its own working
// copy of entities from this on creation.
type Definition struct {
	Name   string     `yaml:"name"`
	Size   [2]int     `yaml:"size"`
	Points []PointDef `yaml:"points"`
	Posts  []PostDef  `yaml:"posts"`
	Lines  []LineDef  `yaml:"lines"`
}

// TownCount returns how many Town posts this definition has, the cap on
// num_players for a game created against it (spec.md §4.3 Creation).
func (d *Definition) TownCount() int {
	n := 0
	for _, p := range d.Posts {
		if p.Type == PostTown {
			n++
		}
	}
	return n
}

// Validate checks internal referential integrity: point indices used by
// posts and lines must exist, and post/line arities must make sense. This
// runs once at load time so a malformed map file fails fast at startup
// rather than mid-game.
func (d *Definition) Validate() error {
	n := len(d.Points)
	if n == 0 {
		return fmt.Errorf("mapdata: %s: no points defined", d.Name)
	}
	inRange := func(idx int) bool { return idx >= 1 && idx <= n }
	for i, p := range d.Posts {
		if !inRange(p.Point) {
			return fmt.Errorf("mapdata: %s: post %d references out-of-range point %d", d.Name, i, p.Point)
		}
		if p.Type != PostTown && p.Type != PostMarket && p.Type != PostStorage {
			return fmt.Errorf("mapdata: %s: post %d has unknown type %d", d.Name, i, p.Type)
		}
	}
	for i, l := range d.Lines {
		if !inRange(l.P0) || !inRange(l.P1) {
			return fmt.Errorf("mapdata: %s: line %d references out-of-range point", d.Name, i)
		}
		if l.Length < 1 {
			return fmt.Errorf("mapdata: %s: line %d has length < 1", d.Name, i)
		}
	}
	return nil
}
