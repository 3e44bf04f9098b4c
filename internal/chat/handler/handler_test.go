package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"rankgate/internal/chat/handler/mocks"
	"rankgate/internal/chat/models"
	"rankgate/internal/chat/service"
	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
	"rankgate/pkg/requestcontext"
)

type ChatHandlerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	service  *mocks.MockService
	router   chi.Router
	memberID id.MemberID
	peerID   id.MemberID
	session  *models.PrivateChatSession
}

func TestChatHandlerSuite(t *testing.T) {
	suite.Run(t, new(ChatHandlerSuite))
}

func (s *ChatHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.memberID = id.NewMemberID()
	s.peerID = id.NewMemberID()

	now := time.Now()
	sess, err := models.NewPrivateChatSession(id.NewChatSessionID(), s.memberID, s.peerID, "pm_abc", models.SessionTypeDailyMatch, now.Add(time.Hour), now)
	s.Require().NoError(err)
	s.session = sess

	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithMemberID(r.Context(), s.memberID)))
		})
	})
	h.Register(s.router)
}

func (s *ChatHandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *ChatHandlerSuite) TestOpen() {
	s.Run("opens with the caller as member A", func() {
		s.service.EXPECT().Open(gomock.Any(), service.OpenCommand{
			MemberA: s.memberID,
			MemberB: s.peerID,
			Type:    models.SessionTypeDailyMatch,
		}).Return(s.session, nil)

		rec := s.do(http.MethodPost, "/chats", `{"peer_id":"`+s.peerID.String()+`","type":"DAILY_MATCH"}`)
		s.Equal(http.StatusCreated, rec.Code)
		s.Contains(rec.Body.String(), `"status":"ACTIVE"`)
	})

	s.Run("bad peer id and type", func() {
		rec := s.do(http.MethodPost, "/chats", `{"peer_id":"nope","type":"DAILY_MATCH"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
		rec = s.do(http.MethodPost, "/chats", `{"peer_id":"`+s.peerID.String()+`","type":"SPEED_DATE"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("existing active chat is 409", func() {
		s.service.EXPECT().Open(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeConflict, "an active chat already exists between these members"))
		rec := s.do(http.MethodPost, "/chats", `{"peer_id":"`+s.peerID.String()+`","type":"GROUP_INITIATED"}`)
		s.Equal(http.StatusConflict, rec.Code)
	})
}

func (s *ChatHandlerSuite) TestGetAndTerminate() {
	path := "/chats/" + s.session.ID.String()

	s.service.EXPECT().Get(gomock.Any(), s.session.ID, s.memberID).Return(s.session, nil)
	s.Equal(http.StatusOK, s.do(http.MethodGet, path, "").Code)

	s.service.EXPECT().Terminate(gomock.Any(), s.session.ID, s.memberID).Return(nil, dErrors.New(dErrors.CodeAlreadyTerminal, "session already ended"))
	s.Equal(http.StatusConflict, s.do(http.MethodPost, path+"/terminate", "").Code)

	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/chats/123", "").Code)
}

func (s *ChatHandlerSuite) TestList() {
	s.service.EXPECT().ListForMember(gomock.Any(), s.memberID).Return(nil, nil)
	rec := s.do(http.MethodGet, "/chats", "")
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"sessions":[]}`, rec.Body.String())
}
