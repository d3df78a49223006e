package modifiers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tableside-backend/internal/cart"
	"github.com/angelmondragon/tableside-backend/internal/catalog"
	"github.com/angelmondragon/tableside-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tableside-backend/pkg/errors"
)

type seeded struct {
	conn     *gorm.DB
	svc      Service
	org      uuid.UUID
	item     models.MenuItem
	size     models.ModifierGroup
	extras   models.ModifierGroup
	large    models.Modifier
	egg      models.Modifier
	unlinked models.ModifierGroup
}

func seed(t *testing.T) *seeded {
	t.Helper()
	conn := dbtest.Open(t)
	repo := catalog.NewRepository(conn)
	ctx := context.Background()
	org := uuid.New()

	item := models.MenuItem{ID: uuid.New(), OrganizationID: org, Name: "Ramen", Price: decimal.RequireFromString("14")}
	require.NoError(t, repo.CreateMenuItem(ctx, &item))

	size := models.ModifierGroup{ID: uuid.New(), OrganizationID: org, Name: "Size", SelectionMode: enums.SelectionModeSingle, MaxSelect: 1}
	extras := models.ModifierGroup{ID: uuid.New(), OrganizationID: org, Name: "Extras", SelectionMode: enums.SelectionModeMulti, Repeatable: true}
	unlinked := models.ModifierGroup{ID: uuid.New(), OrganizationID: org, Name: "Drinks", SelectionMode: enums.SelectionModeMulti}
	for _, g := range []*models.ModifierGroup{&size, &extras, &unlinked} {
		require.NoError(t, repo.CreateModifierGroup(ctx, g))
	}

	large := models.Modifier{ID: uuid.New(), GroupID: size.ID, Name: "Large", PriceDelta: decimal.RequireFromString("2")}
	regular := models.Modifier{ID: uuid.New(), GroupID: size.ID, Name: "Regular", Position: 1}
	egg := models.Modifier{ID: uuid.New(), GroupID: extras.ID, Name: "Egg", PriceDelta: decimal.RequireFromString("1.25")}
	for _, m := range []*models.Modifier{&large, &regular, &egg} {
		require.NoError(t, repo.CreateModifier(ctx, m))
	}
	require.NoError(t, repo.ReplaceMenuItemGroups(ctx, item.ID, []uuid.UUID{size.ID, extras.ID}))

	svc, err := NewService(repo, repo, nil)
	require.NoError(t, err)
	return &seeded{conn: conn, svc: svc, org: org, item: item, size: size, extras: extras, large: large, egg: egg, unlinked: unlinked}
}

func TestLoadReturnsLinkedGroupsInOrder(t *testing.T) {
	s := seed(t)

	c, err := s.svc.Load(context.Background(), s.org, s.item.ID)
	require.NoError(t, err)
	assert.Empty(t, c.LoadError)
	assert.Equal(t, "Ramen", c.Item.Title)
	require.Len(t, c.Groups, 2)
	assert.Equal(t, "Size", c.Groups[0].Name)
	assert.Equal(t, enums.SelectionModeSingle, c.Groups[0].SelectionMode)
	require.Len(t, c.Groups[0].Options, 2)
	assert.Equal(t, "Large", c.Groups[0].Options[0].Name)
	assert.Equal(t, "Extras", c.Groups[1].Name)
}

func TestLoadDegradesWhenGroupsFail(t *testing.T) {
	s := seed(t)
	require.NoError(t, s.conn.Exec("DROP TABLE modifiers").Error)

	c, err := s.svc.Load(context.Background(), s.org, s.item.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, c.LoadError)
	assert.Empty(t, c.Groups)

	session, _, err := s.svc.Open(context.Background(), s.org, s.item.ID)
	require.NoError(t, err)
	out, err := session.Confirm()
	require.NoError(t, err)
	assert.True(t, out.Modifiers.IsNone(), "the item can still be added plain")
}

func TestLoadUnknownItem(t *testing.T) {
	s := seed(t)

	_, err := s.svc.Load(context.Background(), s.org, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = s.svc.Load(context.Background(), uuid.New(), s.item.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "items are scoped to the organization")
}

func TestComposeBuildsPricedLine(t *testing.T) {
	s := seed(t)

	out, err := s.svc.Compose(context.Background(), s.org, ComposeInput{
		ItemID: s.item.ID,
		Qty:    2,
		Notes:  "extra napkins",
		Single: map[uuid.UUID]uuid.UUID{s.size.ID: s.large.ID},
		Multi:  map[uuid.UUID][]MultiPick{s.extras.ID: {{OptionID: s.egg.ID, Qty: 2}}},
	})
	require.NoError(t, err)
	// 14 + 2 + 2*1.25
	assert.True(t, decimal.RequireFromString("18.5").Equal(out.UnitPrice), out.UnitPrice.String())
	assert.Equal(t, 2, out.Qty)
	require.Len(t, out.Modifiers.Selections(), 2)
}

func TestComposeRejectsUnlinkedGroup(t *testing.T) {
	s := seed(t)

	_, err := s.svc.Compose(context.Background(), s.org, ComposeInput{
		ItemID: s.item.ID,
		Multi:  map[uuid.UUID][]MultiPick{s.unlinked.ID: {{OptionID: uuid.New()}}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestComposePrefersSelectionsOverLegacy(t *testing.T) {
	s := seed(t)
	legacy := &cart.LegacyModifiers{Broth: "spicy"}

	out, err := s.svc.Compose(context.Background(), s.org, ComposeInput{
		ItemID: s.item.ID,
		Single: map[uuid.UUID]uuid.UUID{s.size.ID: s.large.ID},
		Legacy: legacy,
	})
	require.NoError(t, err)
	assert.Equal(t, cart.ModifierKindGeneric, out.Modifiers.Kind())
	assert.True(t, decimal.RequireFromString("16").Equal(out.UnitPrice), out.UnitPrice.String())
	require.Len(t, out.Modifiers.Selections(), 1)

	_, err = s.svc.Compose(context.Background(), s.org, ComposeInput{
		ItemID: s.item.ID,
		Single: map[uuid.UUID]uuid.UUID{uuid.New(): uuid.New()},
		Legacy: legacy,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "picks are checked even next to legacy fields")

	out, err = s.svc.Compose(context.Background(), s.org, ComposeInput{ItemID: s.item.ID, Legacy: legacy})
	require.NoError(t, err)
	legacyOut, ok := out.Modifiers.Legacy()
	require.True(t, ok)
	assert.Equal(t, "spicy", legacyOut.Broth)
	assert.True(t, s.item.Price.Equal(out.UnitPrice))
}
