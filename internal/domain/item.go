package domain

// Modality tags the payload kind of an item collection.
type Modality string

const (
	// ModalityText marks items carrying raw text.
	ModalityText Modality = "text"
	// ModalityImage marks items carrying an image.
	ModalityImage Modality = "image"
	// ModalityTextImage marks items carrying both text and an image,
	// encoded jointly by a fused encoder.
	ModalityTextImage Modality = "text+image"
)

// Valid reports whether the modality is one of the supported tags.
func (m Modality) Valid() bool {
	switch m {
	case ModalityText, ModalityImage, ModalityTextImage:
		return true
	}
	return false
}

// Item is a single corpus or query entity. Exactly one of Text/ImagePath is
// populated for single-modality collections; both for text+image collections.
// Image bytes are loaded lazily at encoding time, not held on the item.
type Item struct {
	ID        string
	Modality  Modality
	Text      string
	ImagePath string
}

// Items is an ordered item collection. A collection is uniformly
// single-modality (or uniformly fused); mixed collections are a data
// contract violation on the caller side and are not detected here.
type Items []Item

// Modality returns the collection modality, inspected from the first element.
// Empty collections report ModalityText.
func (its Items) Modality() Modality {
	if len(its) == 0 {
		return ModalityText
	}
	return its[0].Modality
}

// IDs returns item identifiers in collection order.
func (its Items) IDs() []string {
	ids := make([]string, len(its))
	for i, it := range its {
		ids[i] = it.ID
	}
	return ids
}

// Texts returns item text payloads in collection order.
func (its Items) Texts() []string {
	texts := make([]string, len(its))
	for i, it := range its {
		texts[i] = it.Text
	}
	return texts
}
