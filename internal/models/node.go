// Package models defines data types for funnels, their canvas graph, and
// the records persisted around them.
package models

import (
	"fmt"
	"slices"
)

// NodeType identifies what a funnel step represents on the canvas.
type NodeType string

// Node types available in the sidebar.
const (
	NodeCapture      NodeType = "capture"
	NodeSales        NodeType = "sales"
	NodeUpsell       NodeType = "upsell"
	NodeDownsell     NodeType = "downsell"
	NodeThankYou     NodeType = "thankyou"
	NodeCheckout     NodeType = "checkout"
	NodeEmail        NodeType = "email"
	NodeWhatsApp     NodeType = "whatsapp"
	NodeSMS          NodeType = "sms"
	NodeCall         NodeType = "call"
	NodeFacebookAds  NodeType = "facebook_ads"
	NodeInstagramAds NodeType = "instagram_ads"
	NodeGoogleAds    NodeType = "google_ads"
	NodeYouTubeAds   NodeType = "youtube_ads"
	NodeTikTokAds    NodeType = "tiktok_ads"
	NodeText         NodeType = "text"
	NodeWait         NodeType = "wait"
	NodeImage        NodeType = "image"
	NodeOther        NodeType = "other"
)

// defaultLabels maps each node type to the label a freshly dropped node gets.
var defaultLabels = map[NodeType]string{
	NodeCapture:      "Capture Page",
	NodeSales:        "Sales Page",
	NodeUpsell:       "Upsell",
	NodeDownsell:     "Downsell",
	NodeThankYou:     "Thank You Page",
	NodeCheckout:     "Checkout",
	NodeEmail:        "Email",
	NodeWhatsApp:     "WhatsApp",
	NodeSMS:          "SMS",
	NodeCall:         "Call",
	NodeFacebookAds:  "Facebook Ads",
	NodeInstagramAds: "Instagram Ads",
	NodeGoogleAds:    "Google Ads",
	NodeYouTubeAds:   "YouTube Ads",
	NodeTikTokAds:    "TikTok Ads",
	NodeText:         "Text",
	NodeWait:         "Wait",
	NodeImage:        "Image",
	NodeOther:        "Custom Step",
}

// NodeTypes returns every known node type in a stable order.
func NodeTypes() []NodeType {
	types := make([]NodeType, 0, len(defaultLabels))
	for t := range defaultLabels {
		types = append(types, t)
	}

	slices.Sort(types)

	return types
}

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	_, ok := defaultLabels[t]
	return ok
}

// DefaultLabel returns the display name a new node of this type starts with.
func (t NodeType) DefaultLabel() string {
	return defaultLabels[t]
}

// ParseNodeType converts a drag payload or request field into a NodeType.
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownNodeType, s)
	}

	return t, nil
}

// Position is a free-form point in graph space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the mutable payload of a node. Icon and Color are only
// meaningful for the "other" type.
type NodeData struct {
	Label   string       `json:"label" mapstructure:"label" validate:"max=500"`
	Icon    string       `json:"icon,omitempty" mapstructure:"icon" validate:"max=100"`
	Color   string       `json:"color,omitempty" mapstructure:"color" validate:"omitempty,max=32"`
	Content *NodeContent `json:"content,omitempty" mapstructure:"content" validate:"omitempty"`
}

// Node is a funnel step placed on the canvas.
type Node struct {
	ID       string   `json:"id" validate:"required,max=255"`
	Type     NodeType `json:"type" validate:"required"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	if n.Data.Content != nil {
		c := n.Data.Content.Clone()
		out.Data.Content = &c
	}

	return out
}
