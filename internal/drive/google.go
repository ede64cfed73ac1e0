package drive

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	listQuery    = "trashed = false"
	listPageSize = 1000

	fileFields       = "id, name, mimeType, size, modifiedTime, viewedByMeTime, owners(emailAddress), permissions(id, emailAddress, role, permissionDetails(role, inheritedFrom))"
	listFields       = "nextPageToken, files(" + fileFields + ")"
	permissionFields = "nextPageToken, permissions(id, emailAddress, role)"
)

// GoogleSource implements Source on the Drive v3 API.
type GoogleSource struct {
	service *drivev3.Service
}

// NewGoogleSource creates a GoogleSource. client must already carry the user's credentials.
func NewGoogleSource(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*GoogleSource, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	srv, err := drivev3.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive client: %w", err)
	}
	return &GoogleSource{service: srv}, nil
}

// NewGoogleFactory returns a Factory that binds each Source to a fixed access token.
// Refreshing is left to the caller so a batch never swaps tokens halfway.
func NewGoogleFactory(opts ...option.ClientOption) Factory {
	return func(ctx context.Context, token *oauth2.Token) (Source, error) {
		client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
		return NewGoogleSource(ctx, client, opts...)
	}
}

// List returns every non-trashed file visible to the user, following nextPageToken.
func (g *GoogleSource) List(ctx context.Context) ([]RemoteFile, error) {
	var files []RemoteFile
	err := g.service.Files.List().
		Q(listQuery).
		PageSize(listPageSize).
		Fields(googleapi.Field(listFields)).
		Pages(ctx, func(page *drivev3.FileList) error {
			for _, f := range page.Files {
				files = append(files, toRemoteFile(f))
			}
			return nil
		})
	if err != nil {
		return nil, remoteErr("list", "", err)
	}
	return files, nil
}

// Get fetches one file's metadata.
func (g *GoogleSource) Get(ctx context.Context, fileID string) (*RemoteFile, error) {
	f, err := g.service.Files.Get(fileID).
		SupportsAllDrives(true).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, remoteErr("get", fileID, err)
	}
	rf := toRemoteFile(f)
	return &rf, nil
}

// Delete permanently deletes a file, bypassing the trash.
func (g *GoogleSource) Delete(ctx context.Context, fileID string) error {
	err := g.service.Files.Delete(fileID).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	return remoteErr("delete", fileID, err)
}

// Trash moves a file to the trash.
func (g *GoogleSource) Trash(ctx context.Context, fileID string) error {
	_, err := g.service.Files.Update(fileID, &drivev3.File{Trashed: true}).
		SupportsAllDrives(true).
		Fields("id, trashed").
		Context(ctx).
		Do()
	return remoteErr("trash", fileID, err)
}

// ListPermissions returns every grant on a file.
func (g *GoogleSource) ListPermissions(ctx context.Context, fileID string) ([]Permission, error) {
	var perms []Permission
	err := g.service.Permissions.List(fileID).
		SupportsAllDrives(true).
		Fields(googleapi.Field(permissionFields)).
		Pages(ctx, func(page *drivev3.PermissionList) error {
			for _, p := range page.Permissions {
				perms = append(perms, toPermission(p))
			}
			return nil
		})
	if err != nil {
		return nil, remoteErr("list permissions", fileID, err)
	}
	return perms, nil
}

// DeletePermission revokes one grant.
func (g *GoogleSource) DeletePermission(ctx context.Context, fileID, permissionID string) error {
	err := g.service.Permissions.Delete(fileID, permissionID).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	return remoteErr("delete permission", fileID, err)
}

func toRemoteFile(f *drivev3.File) RemoteFile {
	rf := RemoteFile{
		ID:             f.Id,
		Name:           f.Name,
		MimeType:       f.MimeType,
		ModifiedTime:   f.ModifiedTime,
		ViewedByMeTime: f.ViewedByMeTime,
	}
	// Google-native documents carry no size.
	if f.Size > 0 {
		rf.Size = strconv.FormatInt(f.Size, 10)
	}
	for _, o := range f.Owners {
		if o == nil {
			continue
		}
		rf.Owners = append(rf.Owners, Owner{Email: o.EmailAddress})
	}
	for _, p := range f.Permissions {
		if p == nil {
			continue
		}
		rf.Permissions = append(rf.Permissions, toPermission(p))
	}
	return rf
}

func toPermission(p *drivev3.Permission) Permission {
	perm := Permission{ID: p.Id, Email: p.EmailAddress, Role: p.Role}
	for _, d := range p.PermissionDetails {
		if d == nil {
			continue
		}
		perm.Details = append(perm.Details, PermissionDetail{Role: d.Role, InheritedFrom: d.InheritedFrom})
	}
	return perm
}
