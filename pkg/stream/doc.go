// ABOUTME: File streaming pipeline package
// ABOUTME: Decodes audio files on a dedicated worker into recycled look-ahead buffers
// Package stream turns encoded audio files into continuous, pre-buffered sample
// streams that a realtime consumer can pull from without ever blocking.
//
// A single Pipeline worker owns every reader and buffer FIFO. Each playing sound
// keeps NumBuffers prepared buffers queued on the worker and receives filled
// buffers over its own channel. When the consumer has drained a buffer it calls
// Release, which hands the sample storage back to the worker to be refilled in
// place, so steady-state playback performs no allocation.
//
// Example:
//
//	p := stream.Spawn(stream.Config{})
//	defer p.Exit()
//
//	s, err := p.Start(id, "rain.wav", 0, true)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	for i := range out {
//	    v, ok := s.NextSample()
//	    if !ok {
//	        break // underrun, or s.Done() at the end of a non-looping file
//	    }
//	    out[i] = v
//	}
package stream
