package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wadjakorntonsri/go-biosite/pkg/adapters/cache/memory"
	"github.com/wadjakorntonsri/go-biosite/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/reorder"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/sections"
	"github.com/wadjakorntonsri/go-biosite/pkg/ports"
)

type testEnv struct {
	repo     *sqlite.SQLiteRepository
	cache    *memory.PageCache
	biosites *BiositeService
	links    *LinkService
	sections *SectionService
	reorders *ReorderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := sqlite.NewSQLiteRepository(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cache := memory.NewPageCache(time.Minute, time.Minute)
	biosites := NewBiositeService(repo, cache, logger, PageOptions{TTL: time.Minute})
	reorders := NewReorderService(repo, logger, sections.Options{}, biosites)
	inv := Invalidators{biosites, reorders}

	return &testEnv{
		repo:     repo,
		cache:    cache,
		biosites: biosites,
		links:    NewLinkService(repo, logger, inv),
		sections: NewSectionService(repo, logger, inv),
		reorders: reorders,
	}
}

func (e *testEnv) seedProfile(t *testing.T) *domain.Biosite {
	t.Helper()
	ctx := context.Background()

	b, err := e.biosites.CreateBiosite(ctx, "Ana", "ana", "")
	require.NoError(t, err)
	_, err = e.sections.SeedDefaults(ctx, b.ID)
	require.NoError(t, err)

	for _, in := range []ports.LinkInput{
		{Label: "Instagram", URL: "https://instagram.com/ana", Icon: "/assets/icons/instagram.svg"},
		{Label: "Blog", URL: "https://blog.example.com"},
		{Label: "My song", URL: "https://open.spotify.com/track/1"},
		{Label: "Another song", URL: "https://open.spotify.com/track/2"},
	} {
		_, err := e.links.CreateLink(ctx, b.ID, in)
		require.NoError(t, err)
	}
	_, err = e.links.CreateWhatsAppLink(ctx, b.ID, "Chat", "+56 9 1234 5678", "Hola!")
	require.NoError(t, err)
	return b
}

func pageTitles(p *domain.Page) []string {
	var out []string
	for _, s := range p.Sections {
		out = append(out, s.Section.Title)
	}
	return out
}

func pageLabels(p *domain.Page, title string) []string {
	out := []string{}
	for _, s := range p.Sections {
		if s.Section.Title == title {
			for _, l := range s.Links {
				out = append(out, l.Link.Label)
			}
		}
	}
	return out
}

func TestCreateBiositeValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.biosites.CreateBiosite(ctx, "x", "Has Spaces", "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = env.biosites.CreateBiosite(ctx, "x", "ana", "")
	require.NoError(t, err)
	_, err = env.biosites.CreateBiosite(ctx, "y", "ANA", "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = env.biosites.GetBiosite(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPageAssemblesSections(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t)

	page, err := env.biosites.Page(context.Background(), "ana")
	require.NoError(t, err)

	assert.Equal(t, []string{"Social", "Links", "Contactame", "Music", "VCard"}, pageTitles(page))
	assert.Equal(t, []string{"Instagram"}, pageLabels(page, "Social"))
	assert.Equal(t, []string{"Blog"}, pageLabels(page, "Links"))
	assert.Equal(t, []string{"My song"}, pageLabels(page, "Music"))
	assert.Equal(t, []string{}, pageLabels(page, "VCard"))

	chat := page.Sections[2].Links[0]
	require.NotNil(t, chat.WhatsApp)
	assert.Equal(t, "+56912345678", chat.WhatsApp.Phone)
	assert.Equal(t, "Hola!", chat.WhatsApp.Message)
	assert.Equal(t, "instagram", page.Sections[0].Links[0].Icon)
}

func TestPageIsCachedUntilLinksChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.seedProfile(t)

	_, err := env.biosites.Page(ctx, "ana")
	require.NoError(t, err)
	_, ok, _ := env.cache.Get(ctx, b.ID)
	require.True(t, ok)

	_, err = env.links.CreateLink(ctx, b.ID, ports.LinkInput{Label: "Shop", URL: "https://shop.example.com"})
	require.NoError(t, err)
	_, ok, _ = env.cache.Get(ctx, b.ID)
	assert.False(t, ok)

	page, err := env.biosites.Page(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, []string{"Blog", "Shop"}, pageLabels(page, "Links"))
}

// hookedRepo runs onListLinks before listing links, standing in for a write
// that lands while a page is being built.
type hookedRepo struct {
	*sqlite.SQLiteRepository
	onListLinks func(ctx context.Context) error
}

func (r *hookedRepo) ListLinks(ctx context.Context, biositeID string) ([]domain.Link, error) {
	if r.onListLinks != nil {
		if err := r.onListLinks(ctx); err != nil {
			return nil, err
		}
	}
	return r.SQLiteRepository.ListLinks(ctx, biositeID)
}

func TestPageBuiltBeforeInvalidationIsNotCached(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.seedProfile(t)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	repo := &hookedRepo{SQLiteRepository: env.repo}
	biosites := NewBiositeService(repo, env.cache, logger, PageOptions{TTL: time.Minute})

	var once sync.Once
	repo.onListLinks = func(ctx context.Context) error {
		once.Do(func() { biosites.Invalidate(ctx, b.ID) })
		return nil
	}

	_, err := biosites.Page(ctx, "ana")
	require.NoError(t, err)
	_, ok, err := env.cache.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, ok, "page read before the invalidation must not be cached")

	_, err = biosites.Page(ctx, "ana")
	require.NoError(t, err)
	_, ok, err = env.cache.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSnapshotSurvivesCancelledJoiner(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedProfile(t)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	entered := make(chan struct{}, 1)
	gate := make(chan struct{})
	repo := &hookedRepo{SQLiteRepository: env.repo}
	repo.onListLinks = func(ctx context.Context) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		select {
		case <-gate:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	biosites := NewBiositeService(repo, nil, logger, PageOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := biosites.Snapshot(ctx, b.ID)
		firstErr <- err
	}()
	<-entered

	second := make(chan *domain.Snapshot, 1)
	go func() {
		snap, err := biosites.Snapshot(context.Background(), b.ID)
		assert.NoError(t, err)
		second <- snap
	}()

	cancel()
	assert.True(t, errors.Is(<-firstErr, context.Canceled))

	close(gate)
	snap := <-second
	require.NotNil(t, snap)
	assert.Len(t, snap.Links, 5)
}

func TestPreviewSkipsCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.seedProfile(t)

	_, err := env.biosites.Preview(ctx, b.ID)
	require.NoError(t, err)
	_, ok, _ := env.cache.Get(ctx, b.ID)
	assert.False(t, ok)
}

func TestInactiveLinksAreHidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.seedProfile(t)

	links, err := env.links.ListLinks(ctx, b.ID)
	require.NoError(t, err)
	off := false
	_, err = env.links.UpdateLink(ctx, b.ID, links[1].ID, ports.LinkInput{IsActive: &off})
	require.NoError(t, err)

	page, err := env.biosites.Preview(ctx, b.ID)
	require.NoError(t, err)
	assert.NotContains(t, pageTitles(page), "Links")
}

func TestClassifyLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.seedProfile(t)

	links, err := env.links.ListLinks(ctx, b.ID)
	require.NoError(t, err)

	tests := []struct {
		index    int
		category domain.Category
		rule     string
		section  string
	}{
		{0, domain.CategorySocial, "social", "Social"},
		{1, domain.CategoryRegular, "default-regular", "Links"},
		{2, domain.CategoryMusic, "music", "Music"},
		{4, domain.CategoryWhatsApp, "whatsapp", "Contactame"},
	}
	for _, tt := range tests {
		t.Run(links[tt.index].Label, func(t *testing.T) {
			c, err := env.links.ClassifyLink(ctx, b.ID, links[tt.index].ID)
			require.NoError(t, err)
			assert.Equal(t, tt.category, c.Category)
			assert.Equal(t, tt.rule, c.Rule)
			assert.Equal(t, tt.section, c.Section)
			assert.True(t, c.Assignable)
		})
	}

	_, err = env.links.ClassifyLink(ctx, "other", links[0].ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCreateLinkValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.seedProfile(t)

	_, err := env.links.CreateLink(ctx, b.ID, ports.LinkInput{Label: "", URL: "https://x.test"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	_, err = env.links.CreateLink(ctx, b.ID, ports.LinkInput{Label: "x", URL: "https://x.test", LinkType: "banner"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	_, err = env.links.CreateWhatsAppLink(ctx, b.ID, "", "123", "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	_, err = env.links.CreateLink(ctx, "missing", ports.LinkInput{Label: "x", URL: "https://x.test"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSeedDefaultsOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b, err := env.biosites.CreateBiosite(ctx, "Ana", "ana", "")
	require.NoError(t, err)

	first, err := env.sections.SeedDefaults(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, first, len(DefaultSectionTitles))

	second, err := env.sections.SeedDefaults(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, second, len(DefaultSectionTitles))

	raw, err := env.repo.ListSections(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, raw, len(DefaultSectionTitles))
}

func TestListSectionsCollapsesDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b, err := env.biosites.CreateBiosite(ctx, "Ana", "ana", "")
	require.NoError(t, err)

	_, err = env.sections.CreateSection(ctx, b.ID, "Links")
	require.NoError(t, err)
	_, err = env.sections.CreateSection(ctx, b.ID, "links")
	require.NoError(t, err)
	_, err = env.sections.CreateSection(ctx, b.ID, "Music")
	require.NoError(t, err)

	list, err := env.sections.ListSections(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Music", list[1].Title)

	_, err = env.sections.CreateSection(ctx, b.ID, "  ")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestReorderSections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.seedProfile(t)

	items, err := env.reorders.ReorderSections(ctx, b.ID, 0, 7)
	require.NoError(t, err)
	require.Len(t, items, 8)

	list, err := env.sections.ListSections(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Links", list[0].Title)
	assert.Equal(t, "Social", list[7].Title)

	page, err := env.biosites.Page(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, []string{"Links", "Contactame", "Music", "VCard", "Social"}, pageTitles(page))
}

func TestReorderSectionLinks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.seedProfile(t)

	_, err := env.links.CreateLink(ctx, b.ID, ports.LinkInput{Label: "Shop", URL: "https://shop.example.com"})
	require.NoError(t, err)

	items, err := env.reorders.ReorderSectionLinks(ctx, b.ID, "links", 1, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)

	page, err := env.biosites.Page(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, []string{"Shop", "Blog"}, pageLabels(page, "Links"))
	assert.Equal(t, []string{"Instagram"}, pageLabels(page, "Social"))
}

func TestReorderErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.seedProfile(t)

	_, err := env.reorders.ReorderSections(ctx, b.ID, 0, 8)
	assert.True(t, errors.Is(err, reorder.ErrIndexOutOfRange))

	_, err = env.reorders.ReorderSectionLinks(ctx, b.ID, "Nope", 0, 0)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = env.reorders.ReorderSections(ctx, "missing", 0, 1)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

// racingRepo deletes a section and fails the next section order write, as if
// another editor removed it while the batch was in flight.
type racingRepo struct {
	*sqlite.SQLiteRepository
	deleteID string
}

func (r *racingRepo) UpdateSectionOrders(ctx context.Context, batch []domain.OrderUpdate) error {
	if r.deleteID != "" {
		id := r.deleteID
		r.deleteID = ""
		if err := r.SQLiteRepository.DeleteSection(ctx, id); err != nil {
			return err
		}
	}
	return r.SQLiteRepository.UpdateSectionOrders(ctx, batch)
}

func TestReorderResyncsAfterFailedPersist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.seedProfile(t)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	repo := &racingRepo{SQLiteRepository: env.repo}
	reorders := NewReorderService(repo, logger, sections.Options{}, env.biosites)

	list, err := env.sections.ListSections(ctx, b.ID)
	require.NoError(t, err)
	repo.deleteID = list[7].ID

	items, err := reorders.ReorderSections(ctx, b.ID, 0, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, reorder.ErrPersistFailed))
	assert.Len(t, items, 7)

	after, err := env.sections.ListSections(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Social", after[0].Title, "failed batch left the order untouched")
	assert.Equal(t, "Links", after[1].Title)
}

func TestReorderSectionLinksTitleSpellings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.seedProfile(t)

	for _, label := range []string{"Shop", "Docs"} {
		_, err := env.links.CreateLink(ctx, b.ID, ports.LinkInput{Label: label, URL: "https://" + strings.ToLower(label) + ".example.com"})
		require.NoError(t, err)
	}

	moves := []struct {
		title string
		want  []string
	}{
		{"Links", []string{"Shop", "Docs", "Blog"}},
		{"links", []string{"Docs", "Blog", "Shop"}},
		{"Links", []string{"Blog", "Shop", "Docs"}},
	}
	for _, m := range moves {
		_, err := env.reorders.ReorderSectionLinks(ctx, b.ID, m.title, 0, 2)
		require.NoError(t, err)

		page, err := env.biosites.Page(ctx, "ana")
		require.NoError(t, err)
		assert.Equal(t, m.want, pageLabels(page, "Links"), "after reorder via %q", m.title)
	}
}

func TestReorderSectionsMovesLinkMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b, err := env.biosites.CreateBiosite(ctx, "Lu", "lu", "")
	require.NoError(t, err)
	for _, title := range []string{"Social", "Redes"} {
		_, err := env.sections.CreateSection(ctx, b.ID, title)
		require.NoError(t, err)
	}
	for _, in := range []ports.LinkInput{
		{Label: "Instagram", URL: "https://instagram.com/lu"},
		{Label: "TikTok", URL: "https://tiktok.com/@lu"},
		{Label: "Facebook", URL: "https://facebook.com/lu"},
	} {
		_, err := env.links.CreateLink(ctx, b.ID, in)
		require.NoError(t, err)
	}

	_, err = env.reorders.ReorderSectionLinks(ctx, b.ID, "Social", 0, 2)
	require.NoError(t, err)

	// Social links now land in the first social section, "Redes".
	_, err = env.reorders.ReorderSections(ctx, b.ID, 0, 1)
	require.NoError(t, err)

	items, err := env.reorders.ReorderSectionLinks(ctx, b.ID, "Redes", 0, 1)
	require.NoError(t, err)
	require.Len(t, items, 3)

	page, err := env.biosites.Page(ctx, "lu")
	require.NoError(t, err)
	assert.Equal(t, []string{"Facebook", "TikTok", "Instagram"}, pageLabels(page, "Redes"))

	_, err = env.reorders.ReorderSectionLinks(ctx, b.ID, "Social", 0, 1)
	assert.True(t, errors.Is(err, reorder.ErrIndexOutOfRange))
}

func TestSectionEditsRefreshReorderState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.seedProfile(t)

	_, err := env.reorders.ReorderSections(ctx, b.ID, 0, 1)
	require.NoError(t, err)

	list, err := env.sections.ListSections(ctx, b.ID)
	require.NoError(t, err)
	require.NoError(t, env.sections.DeleteSection(ctx, b.ID, list[7].ID))

	items, err := env.reorders.ReorderSections(ctx, b.ID, 6, 0)
	require.NoError(t, err)
	assert.Len(t, items, 7)
}
