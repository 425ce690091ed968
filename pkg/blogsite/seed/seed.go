// Package seed loads YAML fixtures describing a blogger home page, its posts
// and their images, and creates them through a blogsite.Service.
package seed

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/materialize-demo/pkg/blogsite"
	"github.com/tendant/materialize-demo/pkg/blogsite/blocks"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/*
var demoFS embed.FS

// ImageRefPrefix marks a string inside a block value as a reference to a
// fixture image key, e.g. "@avatar".
const ImageRefPrefix = "@"

// Fixture is the YAML document describing a demo site.
type Fixture struct {
	Images []ImageFixture `yaml:"images"`
	Home   HomeFixture    `yaml:"home"`
	Posts  []PostFixture  `yaml:"posts"`
}

// ImageFixture is an image file to upload. File is relative to the fixture.
type ImageFixture struct {
	Key   string `yaml:"key"`
	File  string `yaml:"file"`
	Title string `yaml:"title"`
}

// HomeFixture describes the blogger home page. Image fields hold fixture
// image keys.
type HomeFixture struct {
	Title           string `yaml:"title"`
	Slug            string `yaml:"slug"`
	Author          string `yaml:"author"`
	UserImage       string `yaml:"user_image"`
	BackgroundImage string `yaml:"background_image"`
	Intro           string `yaml:"intro"`
	Live            bool   `yaml:"live"`
}

// PostFixture describes a blog, parallax or dynamic parallax page.
type PostFixture struct {
	Type        string         `yaml:"type"`
	Title       string         `yaml:"title"`
	Slug        string         `yaml:"slug"`
	Date        string         `yaml:"date"`
	Description string         `yaml:"description"`
	Parallax1   string         `yaml:"parallax1"`
	Parallax2   string         `yaml:"parallax2"`
	Live        bool           `yaml:"live"`
	Body        []BlockFixture `yaml:"body"`
}

// BlockFixture is one body block; Value is any YAML structure matching the
// block kind.
type BlockFixture struct {
	Type  string    `yaml:"type"`
	Value yaml.Node `yaml:"value"`
}

// Result holds what Apply created.
type Result struct {
	Home   *blogsite.Page
	Posts  []*blogsite.Page
	Images map[string]*blogsite.Image
}

// Load parses a fixture document.
func Load(r io.Reader) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// LoadFile parses the fixture at name and returns it with the directory it
// lives in, from which its image files are read.
func LoadFile(name string) (*Fixture, fs.FS, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	fx, err := Load(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	return fx, os.DirFS(path.Dir(name)), nil
}

// Demo returns the built-in demo fixture and its files.
func Demo() (*Fixture, fs.FS, error) {
	files, err := fs.Sub(demoFS, "fixtures")
	if err != nil {
		return nil, nil, err
	}
	f, err := files.Open("demo.yaml")
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	fx, err := Load(f)
	if err != nil {
		return nil, nil, err
	}
	return fx, files, nil
}

// Validate checks that every image key used by the fixture is declared.
func (fx *Fixture) Validate() error {
	keys := make(map[string]bool, len(fx.Images))
	for _, img := range fx.Images {
		if img.Key == "" || img.File == "" {
			return fmt.Errorf("image fixtures need a key and a file")
		}
		if keys[img.Key] {
			return fmt.Errorf("duplicate image key %q", img.Key)
		}
		keys[img.Key] = true
	}

	check := func(where, key string) error {
		if key != "" && !keys[key] {
			return fmt.Errorf("%s: unknown image key %q", where, key)
		}
		return nil
	}
	if err := check("home.user_image", fx.Home.UserImage); err != nil {
		return err
	}
	if err := check("home.background_image", fx.Home.BackgroundImage); err != nil {
		return err
	}
	for i, post := range fx.Posts {
		if err := check(fmt.Sprintf("posts[%d].parallax1", i), post.Parallax1); err != nil {
			return err
		}
		if err := check(fmt.Sprintf("posts[%d].parallax2", i), post.Parallax2); err != nil {
			return err
		}
	}
	return nil
}

// Apply uploads the fixture images read from files, then creates the home
// page and its posts, publishing those marked live.
func Apply(ctx context.Context, svc blogsite.Service, fx *Fixture, files fs.FS) (*Result, error) {
	res := &Result{Images: make(map[string]*blogsite.Image)}

	for _, imgFx := range fx.Images {
		img, err := uploadImage(ctx, svc, files, imgFx)
		if err != nil {
			return nil, fmt.Errorf("image %q: %w", imgFx.Key, err)
		}
		res.Images[imgFx.Key] = img
	}

	home, err := svc.CreatePage(ctx, blogsite.CreatePageRequest{
		Type:              blogsite.PageTypeBloggerHome,
		Title:             fx.Home.Title,
		Slug:              fx.Home.Slug,
		Author:            fx.Home.Author,
		UserImageID:       res.imageID(fx.Home.UserImage),
		BackgroundImageID: res.imageID(fx.Home.BackgroundImage),
		Intro:             fx.Home.Intro,
	})
	if err != nil {
		return nil, fmt.Errorf("home page: %w", err)
	}
	if fx.Home.Live {
		if home, err = svc.PublishPage(ctx, home.ID); err != nil {
			return nil, fmt.Errorf("publish home page: %w", err)
		}
	}
	res.Home = home
	slog.Info("Seeded home page", "page_id", home.ID, "title", home.Title)

	for i, postFx := range fx.Posts {
		post, err := res.createPost(ctx, svc, home, postFx)
		if err != nil {
			return nil, fmt.Errorf("posts[%d] %q: %w", i, postFx.Title, err)
		}
		res.Posts = append(res.Posts, post)
		slog.Info("Seeded post", "page_id", post.ID, "type", post.Type, "live", post.Live)
	}

	return res, nil
}

func uploadImage(ctx context.Context, svc blogsite.Service, files fs.FS, imgFx ImageFixture) (*blogsite.Image, error) {
	f, err := files.Open(imgFx.File)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return svc.UploadImage(ctx, blogsite.UploadImageRequest{
		Title:    imgFx.Title,
		FileName: path.Base(imgFx.File),
	}, f)
}

func (res *Result) createPost(ctx context.Context, svc blogsite.Service, home *blogsite.Page, postFx PostFixture) (*blogsite.Page, error) {
	req := blogsite.CreatePageRequest{
		ParentID:    &home.ID,
		Type:        blogsite.PageType(postFx.Type),
		Title:       postFx.Title,
		Slug:        postFx.Slug,
		Description: postFx.Description,
		Parallax1ID: res.imageID(postFx.Parallax1),
		Parallax2ID: res.imageID(postFx.Parallax2),
	}

	if postFx.Date != "" {
		d, err := time.Parse("2006-01-02", postFx.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", postFx.Date, err)
		}
		req.Date = &d
	}

	for i, blockFx := range postFx.Body {
		block, err := res.block(blockFx)
		if err != nil {
			return nil, fmt.Errorf("body[%d]: %w", i, err)
		}
		req.Body = append(req.Body, block)
	}

	post, err := svc.CreatePage(ctx, req)
	if err != nil {
		return nil, err
	}
	if postFx.Live {
		return svc.PublishPage(ctx, post.ID)
	}
	return post, nil
}

// block converts a YAML block value to its JSON form, replacing image key
// references with image ids.
func (res *Result) block(blockFx BlockFixture) (blocks.Block, error) {
	var value interface{}
	if err := blockFx.Value.Decode(&value); err != nil {
		return blocks.Block{}, err
	}

	value, err := res.resolveRefs(value)
	if err != nil {
		return blocks.Block{}, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return blocks.Block{}, err
	}
	return blocks.Block{Type: blocks.Kind(blockFx.Type), Value: raw}, nil
}

func (res *Result) resolveRefs(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case string:
		if !strings.HasPrefix(val, ImageRefPrefix) {
			return val, nil
		}
		img, ok := res.Images[strings.TrimPrefix(val, ImageRefPrefix)]
		if !ok {
			return nil, fmt.Errorf("unknown image reference %q", val)
		}
		return img.ID.String(), nil
	case []interface{}:
		for i := range val {
			resolved, err := res.resolveRefs(val[i])
			if err != nil {
				return nil, err
			}
			val[i] = resolved
		}
		return val, nil
	case map[string]interface{}:
		for k := range val {
			resolved, err := res.resolveRefs(val[k])
			if err != nil {
				return nil, err
			}
			val[k] = resolved
		}
		return val, nil
	}
	return v, nil
}

func (res *Result) imageID(key string) *uuid.UUID {
	if key == "" {
		return nil
	}
	img, ok := res.Images[key]
	if !ok {
		return nil
	}
	id := img.ID
	return &id
}
