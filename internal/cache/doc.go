// Package cache provides a small generic LRU cache.
//
// vpp keeps precomputed resampling tables here so that resizes sharing a
// source and destination geometry, such as the tiles of a multiview mosaic,
// build each table once.
//
//	c := cache.New[key, interp.Axis](64)
//	axis := c.GetOrCreate(k, func() interp.Axis { return interp.NewAxis(m, src, dst) })
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
