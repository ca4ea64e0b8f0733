package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/crmhub/docquery-go/internal/errors"
)

func TestProfileService_Lookup(t *testing.T) {
	db, mock := newMockGormDB(t)
	service := NewProfileService(db, nil)

	expectProfileRows(mock, "tenant-1", "13800138000", true)

	profiles, err := service.Lookup(context.Background(), "tenant-1", "13800138000")
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Alice", profiles[0].Name)
	assert.Equal(t, "tenant-1", profiles[0].TenantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileService_LookupNoMatch(t *testing.T) {
	db, mock := newMockGormDB(t)
	service := NewProfileService(db, nil)

	expectProfileRows(mock, "tenant-1", "00000000000", false)

	profiles, err := service.Lookup(context.Background(), "tenant-1", "00000000000")
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestProfileService_LookupJSON(t *testing.T) {
	db, mock := newMockGormDB(t)
	service := NewProfileService(db, nil)

	expectProfileRows(mock, "tenant-1", "13800138000", true)

	profileJSON, err := service.LookupJSON(context.Background(), "tenant-1", "13800138000")
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(profileJSON), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "Alice", decoded[0]["name"])
}

func TestProfileService_LookupJSONNoMatch(t *testing.T) {
	db, mock := newMockGormDB(t)
	service := NewProfileService(db, nil)

	expectProfileRows(mock, "tenant-1", "00000000000", false)

	// 无匹配画像时返回空JSON数组而不是错误
	profileJSON, err := service.LookupJSON(context.Background(), "tenant-1", "00000000000")
	require.NoError(t, err)
	assert.Equal(t, "[]", profileJSON)
}

func TestProfileService_DatabaseError(t *testing.T) {
	db, mock := newMockGormDB(t)
	service := NewProfileService(db, nil)

	mock.ExpectQuery(`SELECT \* FROM "user_profiles"`).
		WillReturnError(sqlmock.ErrCancelled)

	_, err := service.Lookup(context.Background(), "tenant-1", "13800138000")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStoreUnavailable))
}
