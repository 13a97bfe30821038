package content_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/content"
	"github.com/cory-johannsen/gridtactics/internal/game/grid"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
	"github.com/cory-johannsen/gridtactics/internal/scripting"
)

const contentRoot = "../../content"

// copyContent clones the shipped content into a temp dir so a test can break it.
func copyContent(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.CopyFS(dir, os.DirFS(contentRoot)))
	return dir
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestLoad_ShippedContent(t *testing.T) {
	lib, err := content.Load(contentRoot)
	require.NoError(t, err)

	assert.Len(t, lib.Races, 3)
	assert.Len(t, lib.Classes, 4)
	assert.Contains(t, lib.Maps, "ford")
	assert.Contains(t, lib.Maps, "ruins")
	assert.Equal(t, []string{"melee", "skirmish"}, lib.ScenarioIDs())
	for _, id := range []string{"brute", "healer", "skirmisher"} {
		assert.Contains(t, lib.Domains, id)
	}
	for _, id := range []string{"poison", "burning", "guarded", "slowed", "weakened"} {
		_, ok := lib.Effects.Get(id)
		assert.True(t, ok, "effect %q", id)
	}
}

func TestLoad_SkillsAreLinked(t *testing.T) {
	lib, err := content.Load(contentRoot)
	require.NoError(t, err)
	for id, s := range lib.Skills {
		if s.EffectID != "" {
			assert.NotNil(t, s.Effect, "skill %q effect not linked", id)
		}
	}
	for id, c := range lib.Classes {
		assert.NotEmpty(t, c.Skills, "class %q has no skills", id)
	}
}

func TestScenario_ReturnsMap(t *testing.T) {
	lib, err := content.Load(contentRoot)
	require.NoError(t, err)

	sc, ix, err := lib.Scenario("skirmish")
	require.NoError(t, err)
	assert.Equal(t, "ford", sc.Map)
	assert.Equal(t, "ford", ix.ID())
	assert.Equal(t, []string{"blue", "red"}, sc.Teams())

	_, _, err = lib.Scenario("nope")
	assert.Error(t, err)
}

func TestSpawnUnits_FreshUnitsInSpawnOrder(t *testing.T) {
	lib, err := content.Load(contentRoot)
	require.NoError(t, err)
	sc, _, err := lib.Scenario("skirmish")
	require.NoError(t, err)

	first, err := lib.SpawnUnits(sc)
	require.NoError(t, err)
	second, err := lib.SpawnUnits(sc)
	require.NoError(t, err)

	require.Len(t, first, len(sc.Spawns))
	for i, u := range first {
		sp := sc.Spawns[i]
		assert.Equal(t, sp.Name, u.Name)
		assert.Equal(t, sp.Team, u.Team)
		assert.Equal(t, sp.Cell(), u.Pos)
		assert.Equal(t, u.MaxHP, u.CurrentHP)
		assert.Equal(t, u.MaxMP, u.CurrentMP)
		assert.NotEqual(t, u.ID, second[i].ID, "each spawn gets a new id")
	}
	assert.Equal(t, unit.ControlHuman, first[0].Control)
	assert.Equal(t, unit.ControlAI, first[3].Control)
	assert.Equal(t, "brute", first[3].AIDomain)
}

func TestLoad_IntegrityFailures(t *testing.T) {
	cases := map[string]struct {
		file string
		body string
		want string
	}{
		"unknown map": {
			file: "scenarios/bad.yaml",
			body: `
id: bad
map: nowhere
spawns:
  - {name: A, team: a, control: ai, race: human, class: knight, pos: [0, 0]}
  - {name: B, team: b, control: ai, race: human, class: knight, pos: [1, 0]}
`,
			want: "unknown map",
		},
		"unknown race": {
			file: "scenarios/bad.yaml",
			body: `
id: bad
map: ford
spawns:
  - {name: A, team: a, control: ai, race: orc, class: knight, pos: [0, 0]}
  - {name: B, team: b, control: ai, race: human, class: knight, pos: [1, 0]}
`,
			want: "unknown race",
		},
		"unwalkable spawn": {
			file: "scenarios/bad.yaml",
			body: `
id: bad
map: ford
spawns:
  - {name: A, team: a, control: ai, race: human, class: knight, pos: [4, 2]}
  - {name: B, team: b, control: ai, race: human, class: knight, pos: [1, 0]}
`,
			want: "unwalkable",
		},
		"shared spawn cell": {
			file: "scenarios/bad.yaml",
			body: `
id: bad
map: ford
spawns:
  - {name: A, team: a, control: ai, race: human, class: knight, pos: [0, 0]}
  - {name: B, team: b, control: ai, race: human, class: knight, pos: [0, 0]}
`,
			want: "already taken",
		},
		"bad control": {
			file: "scenarios/bad.yaml",
			body: `
id: bad
map: ford
spawns:
  - {name: A, team: a, control: robot, race: human, class: knight, pos: [0, 0]}
  - {name: B, team: b, control: ai, race: human, class: knight, pos: [1, 0]}
`,
			want: "unknown control",
		},
		"unknown domain": {
			file: "scenarios/bad.yaml",
			body: `
id: bad
map: ford
spawns:
  - {name: A, team: a, control: ai, race: human, class: knight, pos: [0, 0], ai: sage}
  - {name: B, team: b, control: ai, race: human, class: knight, pos: [1, 0]}
`,
			want: "unknown ai domain",
		},
		"single team": {
			file: "scenarios/bad.yaml",
			body: `
id: bad
map: ford
spawns:
  - {name: A, team: a, control: ai, race: human, class: knight, pos: [0, 0]}
`,
			want: "two teams",
		},
		"class with unknown skill": {
			file: "classes/bard.yaml",
			body: `
id: bard
name: Bard
skills: [lullaby]
`,
			want: "lullaby",
		},
		"domain casting unknown skill": {
			file: "ai/singer.yaml",
			body: `
domain:
  id: singer
  tasks:
    - id: behave
  operators:
    - id: sing
      action: cast
      skill: lullaby
      target: nearest_enemy
  methods:
    - task: behave
      id: perform
      subtasks: [sing]
`,
			want: "unknown skill",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			root := copyContent(t)
			writeFile(t, filepath.Join(root, tc.file), tc.body)
			_, err := content.Load(root)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_MissingDirectory(t *testing.T) {
	root := copyContent(t)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "maps")))
	_, err := content.Load(root)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "maps"))
}

func TestLoadScripts_GlobalAndDomainScopes(t *testing.T) {
	lib, err := content.Load(contentRoot)
	require.NoError(t, err)
	mgr := scripting.NewManager(zap.NewNop())
	defer mgr.Close()

	require.NoError(t, lib.LoadScripts(mgr, 0))
	assert.True(t, mgr.HasHook("skirmisher", "enemy_too_close"))
	assert.True(t, mgr.HasHook("brute", "outnumbered"), "domains without scripts fall back to the global scope")
	assert.False(t, mgr.HasHook("brute", "enemy_too_close"))
}

func TestLoadScripts_RejectsOrphanScriptDir(t *testing.T) {
	root := copyContent(t)
	dir := filepath.Join(root, "scripts", "ai", "ghost")
	require.NoError(t, os.MkdirAll(dir, 0755))
	writeFile(t, filepath.Join(dir, "x.lua"), "function boo() return true end\n")

	lib, err := content.Load(root)
	require.NoError(t, err)
	mgr := scripting.NewManager(zap.NewNop())
	defer mgr.Close()
	err = lib.LoadScripts(mgr, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestLoadScripts_NoScriptsDirIsFine(t *testing.T) {
	root := copyContent(t)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "scripts")))
	lib, err := content.Load(root)
	require.NoError(t, err)
	mgr := scripting.NewManager(zap.NewNop())
	defer mgr.Close()
	assert.NoError(t, lib.LoadScripts(mgr, 0))
}

func TestMaps_FordRiverIsImpassable(t *testing.T) {
	lib, err := content.Load(contentRoot)
	require.NoError(t, err)
	ford := lib.Maps["ford"]
	assert.False(t, ford.Walkable(grid.Cell{X: 4, Y: 2}))
	assert.True(t, ford.Walkable(grid.Cell{X: 4, Y: 3}))
	cost, ok := ford.TerrainAt(grid.Cell{X: 4, Y: 3})
	require.True(t, ok)
	assert.Equal(t, 2, cost.MoveCost)
}
