package cleanup

import (
	"testing"
	"time"

	"github.com/pysugar/drivesweep/internal/drive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		raw       drive.RemoteFile
		owned     bool
		shared    bool
		canDelete bool
		owner     string
	}{
		{
			name:  "owned without permissions",
			raw:   drive.RemoteFile{ID: "f1", Owners: []drive.Owner{{Email: "u@x.com"}}},
			owned: true, owner: "u@x.com",
		},
		{
			name:  "first owner decides",
			raw:   drive.RemoteFile{ID: "f1", Owners: []drive.Owner{{Email: "other@x.com"}, {Email: "u@x.com"}}},
			owner: "other@x.com",
		},
		{
			name: "no owners",
			raw:  drive.RemoteFile{ID: "f1"},
		},
		{
			name: "owner-only grants are not sharing",
			raw: drive.RemoteFile{ID: "f1", Permissions: []drive.Permission{
				{Role: "owner", Details: []drive.PermissionDetail{{Role: "owner"}}},
			}},
			canDelete: true,
		},
		{
			name: "reader grant shares",
			raw: drive.RemoteFile{ID: "f1", Permissions: []drive.Permission{
				{Role: "owner"},
				{Role: "reader"},
			}},
			shared: true,
		},
		{
			name: "inherited owner detail cannot delete",
			raw: drive.RemoteFile{ID: "f1", Permissions: []drive.Permission{
				{Role: "owner", Details: []drive.PermissionDetail{{Role: "owner", InheritedFrom: "folder-1"}}},
			}},
		},
		{
			name: "a later non-qualifying detail never resets canDelete",
			raw: drive.RemoteFile{ID: "f1", Permissions: []drive.Permission{
				{Role: "owner", Details: []drive.PermissionDetail{{Role: "owner"}}},
				{Role: "writer", Details: []drive.PermissionDetail{{Role: "writer", InheritedFrom: "folder-1"}}},
			}},
			shared: true, canDelete: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Classify(tt.raw, "u@x.com")
			require.NoError(t, err)
			assert.Equal(t, tt.owned, f.IsOwnedByUser)
			assert.Equal(t, tt.shared, f.IsShared)
			assert.Equal(t, tt.canDelete, f.CanDelete)
			assert.False(t, f.CanTrash)
			if tt.owner == "" {
				assert.Nil(t, f.OwnerEmail)
			} else {
				require.NotNil(t, f.OwnerEmail)
				assert.Equal(t, tt.owner, *f.OwnerEmail)
			}
		})
	}
}

func TestClassify_DefaultsAndTimestamps(t *testing.T) {
	f, err := Classify(drive.RemoteFile{ID: "f1"}, "u@x.com")
	require.NoError(t, err)
	assert.Equal(t, "f1", f.FileID)
	assert.Equal(t, DefaultName, f.Name)
	assert.Equal(t, DefaultMimeType, f.MimeType)
	assert.Equal(t, DefaultSize, f.Size)
	assert.Nil(t, f.LastModifiedTime)
	assert.Nil(t, f.LastViewedTime)

	f, err = Classify(drive.RemoteFile{
		ID:             "f2",
		ModifiedTime:   "2024-01-02T03:04:05.123+02:00",
		ViewedByMeTime: "2024-02-01T00:00:00Z",
	}, "u@x.com")
	require.NoError(t, err)
	require.NotNil(t, f.LastModifiedTime)
	assert.Equal(t, time.UTC, f.LastModifiedTime.Location())
	assert.Equal(t, 1, f.LastModifiedTime.Hour())
	require.NotNil(t, f.LastViewedTime)
	assert.True(t, f.LastViewedTime.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
}

func TestClassify_Malformed(t *testing.T) {
	_, err := Classify(drive.RemoteFile{Name: "no id"}, "u@x.com")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = Classify(drive.RemoteFile{ID: "f1", ViewedByMeTime: "yesterday"}, "u@x.com")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseSize(t *testing.T) {
	assert.Equal(t, int64(1000), ParseSize("1000"))
	assert.Equal(t, int64(9007199254740993), ParseSize("9007199254740993"))
	assert.Zero(t, ParseSize(""))
	assert.Zero(t, ParseSize("abc"))
	assert.Zero(t, ParseSize("-5"))
}
