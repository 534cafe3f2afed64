package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gharkhoj/gharkhoj/internal/models"
)

type propertyFixture struct {
	landlordID uuid.UUID

	repo      *fakePropertyRepo
	imageRepo *fakeImageRepo
	roleRepo  *fakeRoleRepo
	store     *fakeStore
	handler   *PropertyHandler
}

func newPropertyFixture() *propertyFixture {
	f := &propertyFixture{
		landlordID: uuid.New(),
		repo:       newFakePropertyRepo(),
		imageRepo:  newFakeImageRepo(),
		roleRepo:   newFakeRoleRepo(),
		store:      &fakeStore{},
	}
	f.handler = NewPropertyHandler(f.repo, f.imageRepo, f.roleRepo, f.store, testLogger)
	return f
}

func (f *propertyFixture) router(userID uuid.UUID) *gin.Engine {
	return authedRouter(userID, func(g *gin.RouterGroup) {
		g.POST("/properties", f.handler.Create)
		g.GET("/properties", f.handler.ListMine)
		g.GET("/search", f.handler.Search)
		g.GET("/properties/:id", f.handler.Get)
		g.PUT("/properties/:id", f.handler.Update)
		g.PATCH("/properties/:id/vacancy", f.handler.SetVacancy)
		g.DELETE("/properties/:id", f.handler.Delete)
	})
}

func validListing() gin.H {
	return gin.H{
		"title":     "2BHK near Boudha",
		"city":      "Kathmandu",
		"price":     30000,
		"room_type": "2bhk",
	}
}

func TestCreateProperty_StartsPending(t *testing.T) {
	f := newPropertyFixture()

	w := doJSON(t, f.router(f.landlordID), http.MethodPost, "/v1/properties", validListing())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var p models.Property
	decodeBody(t, w, &p)
	assert.Equal(t, models.StatusPending, p.Status)
	assert.Equal(t, f.landlordID, p.LandlordID)
	assert.True(t, p.IsVacant, "vacancy defaults to true")
}

func TestCreateProperty_RejectsBadRoomType(t *testing.T) {
	f := newPropertyFixture()

	body := validListing()
	body["room_type"] = "mansion"
	w := doJSON(t, f.router(f.landlordID), http.MethodPost, "/v1/properties", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProperty_PendingHiddenFromStrangers(t *testing.T) {
	f := newPropertyFixture()
	p := f.repo.seed(models.Property{
		LandlordID: f.landlordID,
		Title:      "Room in Kirtipur",
		City:       "Kathmandu",
		Price:      8000,
		RoomType:   models.RoomSingle,
		Status:     models.StatusPending,
		IsVacant:   true,
	})

	stranger := doJSON(t, f.router(uuid.New()), http.MethodGet, "/v1/properties/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, stranger.Code)

	owner := doJSON(t, f.router(f.landlordID), http.MethodGet, "/v1/properties/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusOK, owner.Code)

	adminID := uuid.New()
	f.roleRepo.Assign(context.Background(), adminID, models.RoleAdmin)
	admin := doJSON(t, f.router(adminID), http.MethodGet, "/v1/properties/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusOK, admin.Code)
}

func TestUpdateProperty_NonOwnerGets404(t *testing.T) {
	f := newPropertyFixture()
	p := f.repo.seed(models.Property{
		LandlordID: f.landlordID,
		Title:      "Flat in Baneshwor",
		City:       "Kathmandu",
		Price:      20000,
		RoomType:   models.RoomFlat,
		Status:     models.StatusApproved,
		IsVacant:   true,
	})

	w := doJSON(t, f.router(uuid.New()), http.MethodPut, "/v1/properties/"+p.ID.String(), validListing())
	assert.Equal(t, http.StatusNotFound, w.Code)

	stored, _ := f.repo.GetByID(context.Background(), p.ID)
	assert.Equal(t, "Flat in Baneshwor", stored.Title, "non-owner update must not land")
}

func TestDeleteProperty_RemovesImageFiles(t *testing.T) {
	f := newPropertyFixture()
	p := f.repo.seed(models.Property{
		LandlordID: f.landlordID,
		Title:      "Hostel bed in Chabahil",
		City:       "Kathmandu",
		Price:      6000,
		RoomType:   models.RoomHostel,
		Status:     models.StatusApproved,
		IsVacant:   true,
	})
	img1, _ := f.imageRepo.Add(context.Background(), p.ID, "/images/a.jpg", 0)
	img2, _ := f.imageRepo.Add(context.Background(), p.ID, "/images/b.jpg", 1)

	w := doJSON(t, f.router(f.landlordID), http.MethodDelete, "/v1/properties/"+p.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, _ := f.repo.GetByID(context.Background(), p.ID)
	assert.Nil(t, stored)
	assert.ElementsMatch(t, []string{img1.ImageURL, img2.ImageURL}, f.store.removed)
}

func TestDeleteProperty_NonOwnerForbidden(t *testing.T) {
	f := newPropertyFixture()
	p := f.repo.seed(models.Property{
		LandlordID: f.landlordID,
		Title:      "Flat",
		City:       "Pokhara",
		Price:      15000,
		RoomType:   models.RoomFlat,
		Status:     models.StatusApproved,
		IsVacant:   true,
	})

	w := doJSON(t, f.router(uuid.New()), http.MethodDelete, "/v1/properties/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	stored, _ := f.repo.GetByID(context.Background(), p.ID)
	assert.NotNil(t, stored, "listing must survive a stranger's delete")
}

func TestDeleteProperty_AdminBypassesOwnership(t *testing.T) {
	f := newPropertyFixture()
	p := f.repo.seed(models.Property{
		LandlordID: f.landlordID,
		Title:      "Flat",
		City:       "Pokhara",
		Price:      15000,
		RoomType:   models.RoomFlat,
		Status:     models.StatusApproved,
		IsVacant:   true,
	})
	adminID := uuid.New()
	f.roleRepo.Assign(context.Background(), adminID, models.RoleAdmin)

	w := doJSON(t, f.router(adminID), http.MethodDelete, "/v1/properties/"+p.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, _ := f.repo.GetByID(context.Background(), p.ID)
	assert.Nil(t, stored)
}

func TestSearch_ValidatesParameters(t *testing.T) {
	f := newPropertyFixture()
	router := f.router(uuid.New())

	cursor := "2026-01-01T00:00:00Z"
	for path, want := range map[string]int{
		"/v1/search?sort=rating":                      http.StatusBadRequest,
		"/v1/search?room_type=castle":                 http.StatusBadRequest,
		"/v1/search?limit=0":                          http.StatusBadRequest,
		"/v1/search?before=today":                     http.StatusBadRequest,
		"/v1/search?sort=price_asc&before=" + cursor:  http.StatusBadRequest,
		"/v1/search?sort=price_desc&before=" + cursor: http.StatusBadRequest,
		"/v1/search?sort=newest&before=" + cursor:     http.StatusOK,
		"/v1/search?room_type=all":                    http.StatusOK,
		"/v1/search?sort=price_desc":                  http.StatusOK,
	} {
		w := doJSON(t, router, http.MethodGet, path, nil)
		assert.Equal(t, want, w.Code, path)
	}
}

func TestSearch_OnlyApprovedVacantListings(t *testing.T) {
	f := newPropertyFixture()
	approved := f.repo.seed(models.Property{
		LandlordID: f.landlordID, Title: "visible", City: "Kathmandu",
		Price: 10000, RoomType: models.RoomFlat,
		Status: models.StatusApproved, IsVacant: true,
	})
	f.repo.seed(models.Property{
		LandlordID: f.landlordID, Title: "pending", City: "Kathmandu",
		Price: 10000, RoomType: models.RoomFlat,
		Status: models.StatusPending, IsVacant: true,
	})
	f.repo.seed(models.Property{
		LandlordID: f.landlordID, Title: "occupied", City: "Kathmandu",
		Price: 10000, RoomType: models.RoomFlat,
		Status: models.StatusApproved, IsVacant: false,
	})

	w := doJSON(t, f.router(uuid.New()), http.MethodGet, "/v1/search", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var results []models.Property
	decodeBody(t, w, &results)
	require.Len(t, results, 1)
	assert.Equal(t, approved.ID, results[0].ID)
}

func TestSetVacancy(t *testing.T) {
	f := newPropertyFixture()
	p := f.repo.seed(models.Property{
		LandlordID: f.landlordID, Title: "Flat", City: "Kathmandu",
		Price: 10000, RoomType: models.RoomFlat,
		Status: models.StatusApproved, IsVacant: true,
	})

	w := doJSON(t, f.router(f.landlordID), http.MethodPatch,
		"/v1/properties/"+p.ID.String()+"/vacancy", gin.H{"is_vacant": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, _ := f.repo.GetByID(context.Background(), p.ID)
	assert.False(t, stored.IsVacant)
}
