package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gotchi/internal/game/creature"
	"github.com/cory-johannsen/gotchi/internal/storage/postgres"
	"github.com/cory-johannsen/gotchi/internal/testutil"
)

func setupCreatureRepo(t *testing.T) *postgres.CreatureRepository {
	t.Helper()
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return postgres.NewCreatureRepository(pc.RawPool)
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func TestCreatureRepository(t *testing.T) {
	repo := setupCreatureRepo(t)
	ctx := context.Background()

	fern, err := repo.CreateSpecies(ctx, "Fern", "a sessile fern", 0)
	require.NoError(t, err)
	wolf, err := repo.CreateSpecies(ctx, "Proto Wolf", "ancestral canid", 0)
	require.NoError(t, err)
	dire, err := repo.CreateSpecies(ctx, "Dire Wolf", "large fangs", wolf.ID)
	require.NoError(t, err)
	grey, err := repo.CreateSpecies(ctx, "Grey Wolf", "fast and territorial", dire.ID)
	require.NoError(t, err)

	require.NoError(t, repo.AssignRole(ctx, grey.ID, "Apex Predator"))
	require.NoError(t, repo.AssignRole(ctx, grey.ID, "Scavenger"))
	require.NoError(t, repo.AssignRole(ctx, fern.ID, "Primary Producer"))
	require.NoError(t, repo.AssignZone(ctx, grey.ID, "forest"))
	require.NoError(t, repo.AssignZone(ctx, fern.ID, "forest"))
	require.NoError(t, repo.AssignZone(ctx, fern.ID, "meadow"))
	require.NoError(t, repo.AddPredation(ctx, grey.ID, fern.ID))
	require.NoError(t, repo.AddPredation(ctx, grey.ID, fern.ID), "duplicate edges are ignored")

	t.Run("GetSpecies", func(t *testing.T) {
		sp, err := repo.GetSpecies(ctx, grey.ID)
		require.NoError(t, err)
		assert.Equal(t, "Grey Wolf", sp.Name)
		assert.Equal(t, dire.ID, sp.AncestorID)

		_, err = repo.GetSpecies(ctx, 999999)
		assert.ErrorIs(t, err, creature.ErrSpeciesNotFound)
	})

	t.Run("GetAncestorChain nearest first", func(t *testing.T) {
		chain, err := repo.GetAncestorChain(ctx, grey.ID)
		require.NoError(t, err)
		require.Len(t, chain, 2)
		assert.Equal(t, dire.ID, chain[0].ID)
		assert.Equal(t, wolf.ID, chain[1].ID)

		root, err := repo.GetAncestorChain(ctx, wolf.ID)
		require.NoError(t, err)
		assert.Empty(t, root)
	})

	t.Run("roles zones and prey", func(t *testing.T) {
		roles, err := repo.GetAssignedRoles(ctx, grey.ID)
		require.NoError(t, err)
		assert.Len(t, roles, 2)

		zones, err := repo.GetZoneMembership(ctx, fern.ID)
		require.NoError(t, err)
		assert.Len(t, zones, 2)

		prey, err := repo.GetPredationEdges(ctx, grey.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{fern.ID}, prey)
	})

	t.Run("ListSpeciesInZones is distinct", func(t *testing.T) {
		zones, err := repo.GetZoneMembership(ctx, fern.ID)
		require.NoError(t, err)
		ids := []int64{zones[0].ID, zones[1].ID}
		species, err := repo.ListSpeciesInZones(ctx, ids)
		require.NoError(t, err)
		require.Len(t, species, 2)
		assert.Equal(t, fern.ID, species[0].ID)
		assert.Equal(t, grey.ID, species[1].ID)

		none, err := repo.ListSpeciesInZones(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("creature progress", func(t *testing.T) {
		owner := uniqueName("user")
		c, err := repo.CreateCreature(ctx, &creature.Creature{OwnerID: owner, SpeciesID: grey.ID, Name: "Ash"})
		require.NoError(t, err)
		assert.Greater(t, c.ID, int64(0))

		require.NoError(t, repo.UpdateProgress(ctx, c.ID, 3, 150))
		got, err := repo.GetCreatureByOwner(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, 150, got.Experience)
		assert.True(t, got.LastFedAt.IsZero())

		assert.ErrorIs(t, repo.UpdateProgress(ctx, 999999, 1, 0), creature.ErrCreatureNotFound)
		_, err = repo.GetCreatureByOwner(ctx, "nobody")
		assert.ErrorIs(t, err, creature.ErrCreatureNotFound)
	})

	t.Run("profile loads from postgres", func(t *testing.T) {
		owner := uniqueName("user")
		c, err := repo.CreateCreature(ctx, &creature.Creature{OwnerID: owner, SpeciesID: grey.ID, Name: "Bolt"})
		require.NoError(t, err)
		p, err := creature.LoadProfile(ctx, repo, c)
		require.NoError(t, err)
		assert.Len(t, p.Ancestors, 2)
		assert.True(t, p.Preys(fern.ID))
	})
}

func TestCreatureRepository_AncestorCycleTerminates(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	repo := postgres.NewCreatureRepository(pc.RawPool)
	ctx := context.Background()

	a, err := repo.CreateSpecies(ctx, "Loop A", "", 0)
	require.NoError(t, err)
	b, err := repo.CreateSpecies(ctx, "Loop B", "", a.ID)
	require.NoError(t, err)
	_, err = pc.RawPool.Exec(ctx, `UPDATE species SET ancestor_id = $1 WHERE id = $2`, b.ID, a.ID)
	require.NoError(t, err)

	chain, err := repo.GetAncestorChain(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, a.ID, chain[0].ID)
}

func TestCreatureRepository_ProgressProperty(t *testing.T) {
	repo := setupCreatureRepo(t)
	ctx := context.Background()
	sp, err := repo.CreateSpecies(ctx, uniqueName("species"), "", 0)
	require.NoError(t, err)
	c, err := repo.CreateCreature(ctx, &creature.Creature{OwnerID: uniqueName("owner"), SpeciesID: sp.ID, Name: "Prop"})
	require.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		exp := rapid.IntRange(0, 1_000_000).Draw(rt, "exp")
		require.NoError(rt, repo.UpdateProgress(ctx, c.ID, creature.LevelFromExperience(exp), exp))
		got, err := repo.GetCreatureByOwner(ctx, c.OwnerID)
		require.NoError(rt, err)
		assert.Equal(rt, exp, got.Experience)
	})
}
