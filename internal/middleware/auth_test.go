package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"doc-audit-go/internal/model"
	"doc-audit-go/pkg/database"
	"doc-audit-go/pkg/token"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

// stubUserService 只为中间件测试提供用户查询。
type stubUserService struct {
	user *model.User
}

func (s *stubUserService) Register(username, password string) (*model.User, error) {
	return nil, errors.New("not implemented")
}

func (s *stubUserService) Login(username, password string) (string, string, error) {
	return "", "", errors.New("not implemented")
}

func (s *stubUserService) GetProfile(username string) (*model.User, error) {
	if s.user != nil && s.user.Username == username {
		return s.user, nil
	}
	return nil, errors.New("user not found")
}

func (s *stubUserService) Logout(tokenString string) error {
	return nil
}

func (s *stubUserService) RefreshToken(refreshTokenString string) (string, string, error) {
	return "", "", errors.New("not implemented")
}

func newAuthTestRouter(t *testing.T) (*gin.Engine, *token.JWTManager, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	database.RDB = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	jwtManager := token.NewJWTManager("test-secret", 1, 1)
	userService := &stubUserService{user: &model.User{Username: "alice", Role: "USER"}}

	r := gin.New()
	r.GET("/me", AuthMiddleware(jwtManager, userService), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	return r, jwtManager, mr
}

func doAuthRequest(r *gin.Engine, tokenString string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if tokenString != "" {
		req.Header.Set("Authorization", "Bearer "+tokenString)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	r, jwtManager, _ := newAuthTestRouter(t)

	tokenString, err := jwtManager.GenerateToken(1, "alice", "USER")
	require.NoError(t, err)

	w := doAuthRequest(r, tokenString)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	r, _, _ := newAuthTestRouter(t)

	w := doAuthRequest(r, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

// 登出后的 token 在剩余有效期内必须被拒绝，
// 否则 Logout 写入的黑名单形同虚设。
func TestAuthMiddlewareRejectsBlacklistedToken(t *testing.T) {
	r, jwtManager, mr := newAuthTestRouter(t)

	tokenString, err := jwtManager.GenerateToken(1, "alice", "USER")
	require.NoError(t, err)

	// 登出前 token 有效
	require.Equal(t, http.StatusOK, doAuthRequest(r, tokenString).Code)

	// 模拟 Logout 写入的黑名单条目
	require.NoError(t, mr.Set("blacklist:"+tokenString, "true"))
	mr.SetTTL("blacklist:"+tokenString, time.Hour)

	w := doAuthRequest(r, tokenString)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
