package users

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"stockdesk/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) PersistUser(req models.CreateUserRequest, hashedPassword []byte) error {
	args := m.Called(req, hashedPassword)
	return args.Error(0)
}

func (m *MockUserRepository) GetUser(id int) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetUsers() ([]models.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateUser(id int, changes *models.UserChanges) error {
	args := m.Called(id, changes)
	return args.Error(0)
}

func setupTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestRegisterUser(t *testing.T) {
	repo := new(MockUserRepository)
	handler := NewHandler(repo)

	repo.On("PersistUser", mock.MatchedBy(func(req models.CreateUserRequest) bool {
		return req.Username == "alex" && req.Role == "user"
	}), mock.MatchedBy(func(hash []byte) bool {
		return bcrypt.CompareHashAndPassword(hash, []byte("secret123")) == nil
	})).Return(nil).Once()

	c, w := setupTestContext()
	body, _ := json.Marshal(map[string]string{"username": "alex", "password": "secret123", "role": "user"})
	c.Request = httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader(body))

	handler.RegisterUser(c)

	assert.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestRegisterUserInvalidPayload(t *testing.T) {
	handler := NewHandler(new(MockUserRepository))

	c, w := setupTestContext()
	c.Request = httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader([]byte(`{"username":"alex"}`)))

	handler.RegisterUser(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUserNotFound(t *testing.T) {
	repo := new(MockUserRepository)
	handler := NewHandler(repo)

	repo.On("GetUser", 42).Return(nil, errors.New("user 42 not found")).Once()

	c, w := setupTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/users/42", nil)
	c.Params = gin.Params{{Key: "id", Value: "42"}}

	handler.GetUser(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateUserNoChanges(t *testing.T) {
	repo := new(MockUserRepository)
	handler := NewHandler(repo)

	role := "user"
	repo.On("GetUser", 7).Return(&models.User{ID: 7, Username: "alex", Role: "user"}, nil).Once()

	c, w := setupTestContext()
	body, _ := json.Marshal(models.UpdateUserRequest{Role: &role})
	c.Request = httptest.NewRequest(http.MethodPatch, "/users/7", bytes.NewReader(body))
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	handler.UpdateUser(c)

	assert.Equal(t, http.StatusOK, w.Code)
	repo.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything)
}

func TestUpdateUserShortPassword(t *testing.T) {
	repo := new(MockUserRepository)
	handler := NewHandler(repo)

	short := "abc"
	repo.On("GetUser", 7).Return(&models.User{ID: 7, Role: "user"}, nil).Once()

	c, w := setupTestContext()
	body, _ := json.Marshal(models.UpdateUserRequest{Password: &short})
	c.Request = httptest.NewRequest(http.MethodPatch, "/users/7", bytes.NewReader(body))
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	handler.UpdateUser(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
