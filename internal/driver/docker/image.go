package docker

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/fgrehm/cradle/internal/driver"
)

// InspectImage returns details about a locally present image.
func (d *DockerDriver) InspectImage(ctx context.Context, ref string) (*driver.ImageDetails, error) {
	img, _, err := d.client.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		return nil, wrapNotFound(err, "inspect image %s", ref)
	}
	return &driver.ImageDetails{ID: img.ID, RepoTags: img.RepoTags}, nil
}

// PullImage pulls ref from its registry. The daemon streams JSON progress
// messages; they are rendered as plain text to progress and any error
// message embedded in the stream fails the pull.
func (d *DockerDriver) PullImage(ctx context.Context, ref string, progress io.Writer) error {
	rc, err := d.client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	defer func() { _ = rc.Close() }()

	if progress == nil {
		progress = io.Discard
	}
	if err := jsonmessage.DisplayJSONMessagesStream(rc, progress, 0, false, nil); err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	return nil
}
