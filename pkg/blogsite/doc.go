// Package blogsite implements the content model of a small blogging site:
// a blogger home page holding blog, parallax and dynamic parallax posts,
// the images they reference, and the rendering of pages to HTML.
//
// The Service interface is the single entry point. Persistence is provided
// by a Repository (memory or Postgres, see repo/) and image files by named
// BlobStores (memory, filesystem or S3, see storage/). Page bodies are block
// streams (see blocks/), and media blocks are played through the media
// package.
//
// # Page tree
//
// A blogger home page may sit at the root of the tree. Every other page type
// must be created directly below a blogger home page and cannot have
// children of its own. Posts inherit their author and user image from the
// home page above them.
package blogsite
