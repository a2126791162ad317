// Package output implements the Output Writer: it emits one directory per
// surviving conversation containing the normalized conversation record,
// copied-and-renamed resolved media, extracted assets, and a media_manifest,
// then writes a master index enumerating every conversation written plus
// resolver statistics. It also populates _with_media/ and _with_assets/
// convenience link directories over the conversations that qualify.
package output
