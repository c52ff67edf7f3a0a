package images

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/minio/minio-go/v7"

	"gitlab.connectwisedev.com/catalog-service/pkg/config"
	"gitlab.connectwisedev.com/catalog-service/pkg/e"
)

type fakeObjectLister struct {
	objects []minio.ObjectInfo
}

func (f *fakeObjectLister) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(f.objects))
	for _, obj := range f.objects {
		ch <- obj
	}
	close(ch)
	return ch
}

func testConfig() *config.ImagesConfig {
	return &config.ImagesConfig{
		Bucket:        "assets",
		Prefix:        "images/",
		PublicBaseURL: "https://cdn.example.com/",
	}
}

func TestList_MapsKeysToPublicURLs(t *testing.T) {
	lister := NewListerWithClient(&fakeObjectLister{objects: []minio.ObjectInfo{
		{Key: "images/"}, // prefix directory marker, excluded
		{Key: "images/air-zoom.jpg"},
		{Key: "images/classic.png"},
	}}, testConfig())

	urls, err := lister.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{
		"https://cdn.example.com/images/air-zoom.jpg",
		"https://cdn.example.com/images/classic.png",
	}
	if !reflect.DeepEqual(urls, want) {
		t.Fatalf("unexpected urls: %v", urls)
	}
}

func TestList_EmptyIsNotFound(t *testing.T) {
	lister := NewListerWithClient(&fakeObjectLister{objects: []minio.ObjectInfo{
		{Key: "images/"},
	}}, testConfig())

	_, err := lister.List(context.Background())
	if !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestList_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("access denied")
	lister := NewListerWithClient(&fakeObjectLister{objects: []minio.ObjectInfo{
		{Err: boom},
	}}, testConfig())

	_, err := lister.List(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected the store error, got %v", err)
	}
	if errors.Is(err, e.ErrNotFound) {
		t.Fatal("store failures must not map to not-found")
	}
}
