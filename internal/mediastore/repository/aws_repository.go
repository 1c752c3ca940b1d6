package repository

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/parishmedia/hls-encoder/internal/mediastore"
	"github.com/parishmedia/hls-encoder/internal/models"
	"github.com/pkg/errors"
)

// Firebase-compatible clients resolve objects through this metadata key.
const downloadTokenMetaKey = "firebaseStorageDownloadTokens"

var sourceFilePattern = regexp.MustCompile(`.+\.(mp4|mov|mkv|webm)$`)

type awsRepository struct {
	client        *s3.Client
	preSignClient *s3.PresignClient
	downloadHost  string
}

func NewAwsRepository(awsClient *s3.Client, preSignClient *s3.PresignClient, downloadHost string) mediastore.AWSRepository {
	return &awsRepository{
		client:        awsClient,
		preSignClient: preSignClient,
		downloadHost:  downloadHost,
	}
}

func (a *awsRepository) GetPresignedURL(ctx context.Context, input *models.UploadInput) (string, error) {
	if !sourceFilePattern.MatchString(strings.ToLower(input.Name)) {
		return "", fmt.Errorf("invalid file format: %s", input.Name)
	}
	putObjectReq, err := a.preSignClient.PresignPutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket:        &input.BucketName,
			Key:           &input.Key,
			ContentLength: &input.Size,
			ContentType:   &input.MimeType,
		},
		s3.WithPresignExpires(60*time.Minute),
	)
	if err != nil {
		return "", errors.Wrap(err, "failed to presign put object")
	}
	return putObjectReq.URL, nil
}

func (a *awsRepository) DownloadToFile(ctx context.Context, bucket, key, localPath string) error {
	res, err := a.client.GetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: &bucket,
			Key:    &key,
		},
	)
	if err != nil {
		return errors.Wrapf(err, "failed to download object %s", key)
	}
	defer res.Body.Close()

	outFile, err := os.Create(localPath)
	if err != nil {
		return errors.Wrap(err, "failed to create local file")
	}
	defer outFile.Close()

	if _, err = outFile.ReadFrom(res.Body); err != nil {
		return errors.Wrap(err, "failed to write local file")
	}
	return nil
}

func (a *awsRepository) UploadFile(ctx context.Context, bucket, localPath string, asset *models.PublishedAsset) error {
	file, err := os.Open(localPath)
	if err != nil {
		return errors.Wrap(err, "failed to open local file")
	}
	defer file.Close()

	if _, err = a.client.PutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket:       &bucket,
			Key:          &asset.DestKey,
			Body:         file,
			ContentType:  &asset.ContentType,
			CacheControl: &asset.CacheControl,
			Metadata:     map[string]string{downloadTokenMetaKey: asset.Token},
		},
	); err != nil {
		return errors.Wrapf(err, "failed to upload %s", asset.DestKey)
	}
	asset.PublicURL = a.DownloadURL(bucket, asset.DestKey, asset.Token)
	return nil
}

func (a *awsRepository) SaveText(ctx context.Context, bucket, content string, asset *models.PublishedAsset) error {
	if _, err := a.client.PutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket:       &bucket,
			Key:          &asset.DestKey,
			Body:         strings.NewReader(content),
			ContentType:  &asset.ContentType,
			CacheControl: &asset.CacheControl,
			Metadata:     map[string]string{downloadTokenMetaKey: asset.Token},
		},
	); err != nil {
		return errors.Wrapf(err, "failed to save %s", asset.DestKey)
	}
	asset.PublicURL = a.DownloadURL(bucket, asset.DestKey, asset.Token)
	return nil
}

func (a *awsRepository) RemoveObject(ctx context.Context, bucket, key string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to remove %s", key)
	}
	return nil
}

// DownloadURL builds the tokened public URL for an object. The path is
// URL-encoded as a single component, matching what playback clients expect.
func (a *awsRepository) DownloadURL(bucket, key, token string) string {
	return fmt.Sprintf("https://%s/v0/b/%s/o/%s?alt=media&token=%s",
		a.downloadHost, bucket, url.PathEscape(key), token)
}
