//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Sources groups the targets that refresh the local documents.
type Sources mg.Namespace

// GCN downloads the circular archive into gcn3/.
func (Sources) GCN() error {
	mg.Deps(Init, Build)
	return sh.RunV(binPath(), "gcn", "fetch-tar", "--allow-net")
}

// Arxiv saves the recent astro-ph listings into the working directory.
func (Sources) Arxiv() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "arxiv", "fetch", "--allow-net")
}

// ATel rebuilds atels.json from the cached telegram e-mails.
func (Sources) ATel() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "atel", "index")
}

// Knowledge exports the knowledge base to knowledge/index/export.yaml.
func Knowledge() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "knowledge", "export", "--format", "yaml")
}
