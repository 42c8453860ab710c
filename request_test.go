package stowhub_test

import (
	"context"
	"errors"
	"testing"

	stowhub "github.com/stowhub/go-stowhub-api"
	"github.com/stowhub/go-stowhub-api/server"
	"github.com/stretchr/testify/require"
)

func TestGetRequests(t *testing.T) {
	s := server.New()
	defer s.Close()

	_, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	renterID, err := s.CreateRenter("renter@stowhub.test", "renter")
	require.NoError(t, err)

	keeperID, err := s.CreateKeeper("keeper@stowhub.test", "keeper")
	require.NoError(t, err)

	s.CreateRequest(renterID, stowhub.KeeperRegistrationRequest, "I want to rent out my basement", "")
	s.CreateRequest(keeperID, stowhub.CreateStorageRequest, "New storage downtown", "storage-1")
	s.CreateRequest(keeperID, stowhub.DeleteStorageRequest, "Closing shop", "storage-2")

	c := newTestClient(t, s)
	defer c.Close()

	// All requests.
	requests, err := c.GetRequests(context.Background(), stowhub.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, requests, 3)

	// Only storage creations.
	creations, err := c.GetRequests(context.Background(), stowhub.RequestFilter{Kind: stowhub.CreateStorageRequest})
	require.NoError(t, err)
	require.Len(t, creations, 1)
	require.Equal(t, keeperID, creations[0].UserID)
	require.Equal(t, "storage-1", creations[0].StorageID)

	// Everything is still pending.
	pending := stowhub.RequestPending

	pendingRequests, err := c.GetRequests(context.Background(), stowhub.RequestFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, pendingRequests, 3)
}

func TestApproveRequest(t *testing.T) {
	s := server.New()
	defer s.Close()

	_, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	renterID, err := s.CreateRenter("renter@stowhub.test", "renter")
	require.NoError(t, err)

	requestID := s.CreateRequest(renterID, stowhub.KeeperRegistrationRequest, "", "")

	c := newTestClient(t, s)
	defer c.Close()

	request, err := c.ApproveRequest(context.Background(), requestID)
	require.NoError(t, err)
	require.Equal(t, stowhub.RequestApproved, request.Status)

	got, err := c.GetRequest(context.Background(), requestID)
	require.NoError(t, err)
	require.Equal(t, stowhub.RequestApproved, got.Status)

	// A resolved request cannot be resolved again.
	_, err = c.ApproveRequest(context.Background(), requestID)
	require.Error(t, err)

	apiErr := new(stowhub.Error)
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, stowhub.RequestNotPending, apiErr.Code)

	// Not even the other way.
	_, err = c.RejectRequest(context.Background(), requestID, "changed my mind")
	require.Error(t, err)

	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, stowhub.RequestNotPending, apiErr.Code)
}

func TestRejectRequest(t *testing.T) {
	s := server.New()
	defer s.Close()

	_, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	keeperID, err := s.CreateKeeper("keeper@stowhub.test", "keeper")
	require.NoError(t, err)

	requestID := s.CreateRequest(keeperID, stowhub.CreateStorageRequest, "", "storage-1")

	c := newTestClient(t, s)
	defer c.Close()

	request, err := c.RejectRequest(context.Background(), requestID, "Photos are missing")
	require.NoError(t, err)
	require.Equal(t, stowhub.RequestRejected, request.Status)
	require.Equal(t, "Photos are missing", request.Reason)

	// Rejected requests no longer show up as pending.
	pending := stowhub.RequestPending

	pendingRequests, err := c.GetRequests(context.Background(), stowhub.RequestFilter{Status: &pending})
	require.NoError(t, err)
	require.Empty(t, pendingRequests)
}
