package proofofinclusion

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/cbergoon/merkletree"
)

var ErrNoLeaves = errors.New("cannot build a Merkle tree without leaves")

// Content is one leaf of the tree
type Content struct {
	X string
}

// CalculateHash hashes the values of a Content
func (c Content) CalculateHash() ([]byte, error) {
	h := sha256.New()
	if _, err := h.Write([]byte(c.X)); err != nil {
		return nil, fmt.Errorf("failed to hash content: %w", err)
	}
	return h.Sum(nil), nil
}

// Equals tests for equality of two Contents
func (c Content) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(Content)
	if !ok {
		return false, fmt.Errorf("unexpected content type %T", other)
	}
	return c.X == o.X, nil
}

// BuildMerkleTree builds a Merkle tree over leaves in order
func BuildMerkleTree(leaves []string) (*merkletree.MerkleTree, error) {
	if len(leaves) == 0 {
		return nil, ErrNoLeaves
	}
	list := make([]merkletree.Content, 0, len(leaves))
	for _, leaf := range leaves {
		list = append(list, Content{X: leaf})
	}

	tree, err := merkletree.NewTree(list)
	if err != nil {
		return nil, fmt.Errorf("failed to create Merkle tree: %w", err)
	}
	return tree, nil
}

// Root returns the hex Merkle root over leaves
func Root(leaves []string) (string, error) {
	tree, err := BuildMerkleTree(leaves)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(tree.MerkleRoot()), nil
}

// Includes reports whether leaf is part of tree
func Includes(tree *merkletree.MerkleTree, leaf string) (bool, error) {
	ok, err := tree.VerifyContent(Content{X: leaf})
	if err != nil {
		return false, fmt.Errorf("failed to verify leaf: %w", err)
	}
	return ok, nil
}
