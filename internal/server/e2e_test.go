package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	ts.register(t, "alice", nil)
	ts.register(t, "bobby", map[string]any{
		"skillsOffered": []any{"Excel"},
		"skillsWanted":  []any{"Guitar"},
	})
	aliceToken := ts.login(t, "alice")
	bobToken := ts.login(t, "bobby")

	status, me := ts.call(t, http.MethodGet, "/user", nil, bobToken)
	require.Equal(t, http.StatusOK, status)
	bobID := me["id"].(float64)

	status, found := ts.call(t, http.MethodGet, "/browse?skill=Excel", nil, aliceToken)
	require.Equal(t, http.StatusOK, status)
	var names []string
	for _, u := range found["users"].([]any) {
		names = append(names, u.(map[string]any)["username"].(string))
	}
	assert.Contains(t, names, "bobby")

	status, created := ts.call(t, http.MethodPost, "/swaps", map[string]any{
		"toUserId":           bobID,
		"offeredSkillName":   "Guitar",
		"requestedSkillName": "Excel",
	}, aliceToken)
	require.Equal(t, http.StatusCreated, status, created)
	swap := created["swapRequest"].(map[string]any)
	assert.Equal(t, "pending", swap["status"])
	swapPath := fmt.Sprintf("/swaps/%d", int(swap["id"].(float64)))

	t.Run("recipient is notified", func(t *testing.T) {
		status, body := ts.call(t, http.MethodGet, "/notifications", nil, bobToken)
		require.Equal(t, http.StatusOK, status)
		feed := body["notifications"].([]any)
		require.Len(t, feed, 1)
		n := feed[0].(map[string]any)
		assert.Equal(t, "NewSwapRequest", n["type"])
		assert.Equal(t, "Name alice sent you a new swap request for Excel.", n["message"])
		assert.Equal(t, false, n["isRead"])
	})

	t.Run("requester cannot accept", func(t *testing.T) {
		status, _ := ts.call(t, http.MethodPatch, swapPath+"/status", map[string]string{"status": "accepted"}, aliceToken)
		assert.Equal(t, http.StatusForbidden, status)
	})

	status, body := ts.call(t, http.MethodPatch, swapPath+"/status", map[string]string{"status": "accepted"}, bobToken)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "accepted", body["swapRequest"].(map[string]any)["status"])

	t.Run("requester is notified of acceptance", func(t *testing.T) {
		_, body := ts.call(t, http.MethodGet, "/notifications", nil, aliceToken)
		feed := body["notifications"].([]any)
		require.Len(t, feed, 1)
		assert.Equal(t, "Your swap request for Guitar has been accepted by Name bobby.",
			feed[0].(map[string]any)["message"])
	})

	t.Run("accepted swap cannot be cancelled", func(t *testing.T) {
		status, body := ts.call(t, http.MethodPatch, swapPath+"/status", map[string]string{"status": "cancelled"}, aliceToken)
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "INVALID_TRANSITION", body["code"])
	})

	t.Run("accepted swap cannot be deleted", func(t *testing.T) {
		status, _ := ts.call(t, http.MethodDelete, swapPath, nil, aliceToken)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("listing carries both names", func(t *testing.T) {
		status, body := ts.call(t, http.MethodGet, "/swaps", nil, aliceToken)
		require.Equal(t, http.StatusOK, status)
		list := body["swapRequests"].([]any)
		require.Len(t, list, 1)
		view := list[0].(map[string]any)
		assert.Equal(t, "sent", view["direction"])
		assert.Equal(t, "Name bobby", view["counterpartyName"])
		assert.Equal(t, "Name alice", view["fromUserName"])
	})

	t.Run("feedback", func(t *testing.T) {
		status, body := ts.call(t, http.MethodPost, "/feedback", map[string]any{
			"swapId":  swap["id"],
			"rating":  5,
			"comment": "  Patient and clear  ",
		}, aliceToken)
		require.Equal(t, http.StatusCreated, status, body)
		fb := body["feedback"].(map[string]any)
		assert.Equal(t, bobID, fb["toUserId"])
		assert.Equal(t, "Patient and clear", fb["comment"])

		status, _ = ts.call(t, http.MethodPost, "/feedback", map[string]any{"swapId": swap["id"], "rating": 4}, aliceToken)
		assert.Equal(t, http.StatusConflict, status)

		status, body = ts.call(t, http.MethodPost, "/feedback", map[string]any{"swapId": swap["id"], "rating": 4}, bobToken)
		require.Equal(t, http.StatusCreated, status, body)

		_, body = ts.call(t, http.MethodGet, "/feedback", nil, aliceToken)
		directions := map[string]int{}
		for _, fb := range body["feedback"].([]any) {
			directions[fb.(map[string]any)["direction"].(string)]++
		}
		assert.Equal(t, map[string]int{"given": 1, "received": 1}, directions)
	})

	t.Run("mark notifications read", func(t *testing.T) {
		_, body := ts.call(t, http.MethodGet, "/notifications", nil, bobToken)
		id := body["notifications"].([]any)[0].(map[string]any)["notificationId"].(string)

		for i := 0; i < 2; i++ {
			status, _ := ts.call(t, http.MethodPost, "/notifications/"+id+"/read", nil, bobToken)
			assert.Equal(t, http.StatusOK, status)
		}
		status, _ := ts.call(t, http.MethodPost, "/notifications/"+id+"/read", nil, aliceToken)
		assert.Equal(t, http.StatusNotFound, status)

		status, _ = ts.call(t, http.MethodPost, "/notifications/read-all", nil, aliceToken)
		assert.Equal(t, http.StatusOK, status)
		_, body = ts.call(t, http.MethodGet, "/notifications", nil, aliceToken)
		for _, n := range body["notifications"].([]any) {
			assert.Equal(t, true, n.(map[string]any)["isRead"])
		}
	})
}

func TestPrivateProfile(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	ts.register(t, "alice", nil)
	ts.register(t, "carol", map[string]any{"isPublic": false})
	aliceToken := ts.login(t, "alice")
	carolToken := ts.login(t, "carol")

	status, _ := ts.call(t, http.MethodGet, "/user/carol", nil, aliceToken)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = ts.call(t, http.MethodGet, "/user/carol", nil, "")
	assert.Equal(t, http.StatusForbidden, status)

	status, body := ts.call(t, http.MethodGet, "/user/carol", nil, carolToken)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "carol", body["username"])
	assert.NotContains(t, body, "password")

	status, body = ts.call(t, http.MethodGet, "/user/alice", nil, "")
	require.Equal(t, http.StatusOK, status)
	offered := body["skillsOffered"].([]any)
	require.Len(t, offered, 1)
	assert.Equal(t, "Guitar", offered[0].(map[string]any)["name"])

	status, _ = ts.call(t, http.MethodGet, "/user/nobody", nil, "")
	assert.Equal(t, http.StatusNotFound, status)

	t.Run("browse hides private users", func(t *testing.T) {
		status, body := ts.call(t, http.MethodGet, "/browse?skill=guitar", nil, "")
		require.Equal(t, http.StatusOK, status)
		users := body["users"].([]any)
		require.Len(t, users, 1)
		assert.Equal(t, "alice", users[0].(map[string]any)["username"])
	})
}
