package diamond_test

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
	"iter"
	"sort"
	"strings"

	"github.com/rsperko/diamond/internal/git"
)

// fakeRepo is a minimal in-memory stand-in for [diamond.GitRepository],
// just enough to exercise the store against refs and blobs without a
// real Git repository underneath.
type fakeRepo struct {
	refs    map[string]git.Hash
	objects map[git.Hash]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		refs:    make(map[string]git.Hash),
		objects: make(map[git.Hash]string),
	}
}

func (f *fakeRepo) GetRef(_ context.Context, ref string) (git.Hash, error) {
	hash, ok := f.refs[ref]
	if !ok {
		return git.ZeroHash, git.ErrNotExist
	}
	return hash, nil
}

func (f *fakeRepo) SetRef(_ context.Context, req git.SetRefRequest) error {
	if req.OldHash != "" {
		cur, ok := f.refs[req.Ref]
		if req.OldHash == git.ZeroHash {
			if ok {
				return errors.New("ref already exists")
			}
		} else if !ok || cur != req.OldHash {
			return errors.New("ref does not match expected old value")
		}
	}
	f.refs[req.Ref] = req.Hash
	return nil
}

func (f *fakeRepo) DeleteRef(_ context.Context, req git.DeleteRefRequest) error {
	delete(f.refs, req.Ref)
	return nil
}

func (f *fakeRepo) ForEachRef(_ context.Context, prefix string) iter.Seq2[git.Ref, error] {
	return func(yield func(git.Ref, error) bool) {
		var names []string
		for name := range f.refs {
			if strings.HasPrefix(name, prefix) {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			if !yield(git.Ref{Name: name, Hash: f.refs[name]}, nil) {
				return
			}
		}
	}
}

func (f *fakeRepo) WriteObject(_ context.Context, _ git.Type, src io.Reader) (git.Hash, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return git.ZeroHash, err
	}
	sum := sha1.Sum(data)
	hash := git.Hash(hex.EncodeToString(sum[:]))
	f.objects[hash] = string(data)
	return hash, nil
}

func (f *fakeRepo) ReadObject(_ context.Context, _ git.Type, hash git.Hash, dst io.Writer) error {
	data, ok := f.objects[hash]
	if !ok {
		return git.ErrNotExist
	}
	_, err := io.WriteString(dst, data)
	return err
}
