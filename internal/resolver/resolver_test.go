package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-seatbot/internal/models"
)

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

// fakeStore answers queries from an in-memory guest list the way the SQL
// store does.
type fakeStore struct {
	guests      []models.GuestRecord
	searchErr   error
	familyErr   error
	familyCalls []string
}

func (f *fakeStore) SearchAttending(_ context.Context, keyword string) ([]models.GuestRecord, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	kw := strings.ToLower(keyword)
	var out []models.GuestRecord
	for _, g := range f.guests {
		if !g.Attending {
			continue
		}
		if strings.Contains(strings.ToLower(g.Name), kw) ||
			strings.Contains(strings.ToLower(g.Alias), kw) ||
			strings.Contains(strings.ToLower(g.DisplayName), kw) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) FamilyByAnchor(_ context.Context, anchor string) ([]models.GuestRecord, error) {
	f.familyCalls = append(f.familyCalls, anchor)
	if f.familyErr != nil {
		return nil, f.familyErr
	}
	var out []models.GuestRecord
	for _, g := range f.guests {
		if !g.Attending {
			continue
		}
		if g.GuestCode == anchor || (g.Representative != nil && *g.Representative == anchor) {
			out = append(out, g)
		}
	}
	return out, nil
}

func wangFamily() []models.GuestRecord {
	return []models.GuestRecord{
		// Deliberately out of role order
		{GuestCode: "W3", Name: "王小寶", SeatNumber: intPtr(5), RelationRole: models.RoleChild, Representative: strPtr("W1"), Attending: true},
		{GuestCode: "W2", Name: "林美玲", SeatNumber: intPtr(5), RelationRole: models.RoleSpouse, Representative: strPtr("W1"), Attending: true},
		{GuestCode: "W1", Name: "王大明", SeatNumber: intPtr(5), RelationRole: models.RoleSelf, Attending: true},
	}
}

func newResolver(store GuestStore, policy Policy) *Resolver {
	return New(store, policy, zerolog.Nop())
}

func TestResolve_TooShort(t *testing.T) {
	store := &fakeStore{guests: wangFamily()}
	r := newResolver(store, DefaultPolicy())

	for _, kw := range []string{"", "王", strings.Repeat("王", 21)} {
		res, err := r.Resolve(context.Background(), kw)
		require.NoError(t, err)
		assert.Equal(t, models.StatusTooShort, res.Status, "keyword %q", kw)
		assert.Empty(t, res.Bundles)
	}
}

func TestResolve_NotFound(t *testing.T) {
	store := &fakeStore{guests: wangFamily()}
	r := newResolver(store, DefaultPolicy())

	res, err := r.Resolve(context.Background(), "陳大文")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotFound, res.Status)
	assert.Empty(t, store.familyCalls)
}

func TestResolve_NonAttendingIgnored(t *testing.T) {
	store := &fakeStore{guests: []models.GuestRecord{
		{GuestCode: "X1", Name: "張三豐", RelationRole: models.RoleSelf, Attending: false},
	}}
	r := newResolver(store, DefaultPolicy())

	res, err := r.Resolve(context.Background(), "張三豐")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotFound, res.Status)
}

func TestResolve_OneFamilyOrdered(t *testing.T) {
	store := &fakeStore{guests: wangFamily()}
	r := newResolver(store, DefaultPolicy())

	res, err := r.Resolve(context.Background(), "王大明")
	require.NoError(t, err)
	require.Equal(t, models.StatusOK, res.Status)
	require.Len(t, res.Bundles, 1)

	b := res.Bundles[0]
	assert.Equal(t, "W1", b.AnchorCode)
	assert.Equal(t, "王大明", b.Who)
	require.Len(t, b.Members, 3)
	assert.Equal(t, models.RoleSelf, b.Members[0].RelationRole)
	assert.Equal(t, models.RoleSpouse, b.Members[1].RelationRole)
	assert.Equal(t, models.RoleChild, b.Members[2].RelationRole)
}

func TestResolve_DependentMatchResolvesToAnchor(t *testing.T) {
	store := &fakeStore{guests: wangFamily()}
	r := newResolver(store, DefaultPolicy())

	res, err := r.Resolve(context.Background(), "林美玲")
	require.NoError(t, err)
	require.Equal(t, models.StatusOK, res.Status)
	require.Len(t, res.Bundles, 1)
	assert.Equal(t, "W1", res.Bundles[0].AnchorCode)
	assert.Equal(t, "王大明", res.Bundles[0].Who)
	assert.Len(t, res.Bundles[0].Members, 3)
}

func TestResolve_SameSurnameTwoRowsOneFamily(t *testing.T) {
	guests := wangFamily()
	guests[0].Name = "王大寶"
	store := &fakeStore{guests: guests}
	r := newResolver(store, DefaultPolicy())

	// Matches W1 and W3, which share one anchor
	res, err := r.Resolve(context.Background(), "王大")
	require.NoError(t, err)
	require.Equal(t, models.StatusOK, res.Status)
	require.Len(t, res.Bundles, 1)
	assert.Equal(t, []string{"W1"}, store.familyCalls)
}

func TestResolve_AmbiguousFamilies(t *testing.T) {
	guests := append(wangFamily(),
		models.GuestRecord{GuestCode: "Z1", Name: "王大明", SeatNumber: intPtr(9), RelationRole: models.RoleSelf, Attending: true},
	)
	store := &fakeStore{guests: guests}

	res, err := newResolver(store, DefaultPolicy()).Resolve(context.Background(), "王大明")
	require.NoError(t, err)
	assert.Equal(t, models.StatusTooMany, res.Status)
	assert.Empty(t, store.familyCalls)

	// A looser threshold returns both, in discovery order
	res, err = newResolver(store, Policy{RowCap: 30, AmbiguityThreshold: 5}).Resolve(context.Background(), "王大明")
	require.NoError(t, err)
	require.Equal(t, models.StatusOK, res.Status)
	require.Len(t, res.Bundles, 2)
	assert.Equal(t, "W1", res.Bundles[0].AnchorCode)
	assert.Equal(t, "Z1", res.Bundles[1].AnchorCode)
}

func TestResolve_RowCapWinsRegardlessOfFamilies(t *testing.T) {
	var guests []models.GuestRecord
	guests = append(guests, models.GuestRecord{GuestCode: "A0", Name: "陳家長", RelationRole: models.RoleSelf, Attending: true})
	for i := 1; i <= 4; i++ {
		guests = append(guests, models.GuestRecord{
			GuestCode:      fmt.Sprintf("A%d", i),
			Name:           fmt.Sprintf("陳家人%d", i),
			RelationRole:   models.RoleGuest,
			Representative: strPtr("A0"),
			Attending:      true,
		})
	}
	store := &fakeStore{guests: guests}

	// Five rows, one family, cap of three
	res, err := newResolver(store, Policy{RowCap: 3, AmbiguityThreshold: 1}).Resolve(context.Background(), "陳家")
	require.NoError(t, err)
	assert.Equal(t, models.StatusTooMany, res.Status)

	res, err = newResolver(store, Policy{RowCap: 5, AmbiguityThreshold: 1}).Resolve(context.Background(), "陳家")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, res.Status)
}

func TestResolve_MissingRepresentativeFallsBackToSelf(t *testing.T) {
	store := &fakeStore{guests: []models.GuestRecord{
		{GuestCode: "O1", Name: "孤單客", RelationRole: models.RoleGuest, Attending: true},
	}}
	r := newResolver(store, DefaultPolicy())

	res, err := r.Resolve(context.Background(), "孤單客")
	require.NoError(t, err)
	require.Equal(t, models.StatusOK, res.Status)
	require.Len(t, res.Bundles, 1)
	assert.Equal(t, "O1", res.Bundles[0].AnchorCode)
	assert.Equal(t, "孤單客", res.Bundles[0].Who)
}

func TestResolve_AnchorWithoutSelfRow(t *testing.T) {
	// The anchor row is not attending, so only dependents come back
	guests := wangFamily()
	guests[2].Attending = false
	store := &fakeStore{guests: guests}

	res, err := newResolver(store, DefaultPolicy()).Resolve(context.Background(), "王小寶")
	require.NoError(t, err)
	require.Equal(t, models.StatusOK, res.Status)
	b := res.Bundles[0]
	assert.Equal(t, "W1", b.AnchorCode)
	assert.Equal(t, "林美玲", b.Who)
	assert.Len(t, b.Members, 2)
}

func TestResolve_StoreErrors(t *testing.T) {
	boom := errors.New("connection refused")

	_, err := newResolver(&fakeStore{searchErr: boom}, DefaultPolicy()).Resolve(context.Background(), "王大明")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	_, err = newResolver(&fakeStore{guests: wangFamily(), familyErr: boom}, DefaultPolicy()).Resolve(context.Background(), "王大明")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestBuildBundle(t *testing.T) {
	t.Run("empty family", func(t *testing.T) {
		b := BuildBundle("X", nil)
		assert.Equal(t, UnknownRepresentative, b.Who)
		assert.Empty(t, b.Members)
	})

	t.Run("same role sorted by name", func(t *testing.T) {
		b := BuildBundle("A", []models.GuestRecord{
			{GuestCode: "2", Name: "b", RelationRole: models.RoleChild},
			{GuestCode: "1", Name: "a", RelationRole: models.RoleChild},
			{GuestCode: "0", Name: "z", RelationRole: "cousin"},
		})
		require.Len(t, b.Members, 3)
		assert.Equal(t, "a", b.Members[0].Name)
		assert.Equal(t, "b", b.Members[1].Name)
		assert.Equal(t, "z", b.Members[2].Name)
		assert.Equal(t, "a", b.Who)
	})

	t.Run("does not reorder the input", func(t *testing.T) {
		family := wangFamily()
		BuildBundle("W1", family)
		assert.Equal(t, "W3", family[0].GuestCode)
	})
}
