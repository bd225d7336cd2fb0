// Package imaging holds the frame and region types that flow through the
// enrollment pipeline together with the small set of pixel operations the
// stages need: bounding box conversion, cropping, annotation, glare
// measurement, resampling, and JPEG encoding for the preview endpoint.
//
// Values produced here are never mutated after they are published to the
// blackboard, so every operation returns a fresh image.
package imaging
