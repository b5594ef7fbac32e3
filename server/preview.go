package server

import (
	"bytes"
	"encoding/base64"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wudi/plantreport/service"
)

const previewStyle = "html,body{margin:0;height:100%}iframe{border:0;width:100%;height:100%}"

// PreviewPage wraps the report in an HTML page that embeds the PDF and opens
// the browser print dialog once it has loaded.
func PreviewPage(rep *service.Report) ([]byte, error) {
	src := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(rep.PDF)

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	root := element(atom.Html)
	doc.AppendChild(root)

	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	title := element(atom.Title)
	title.AppendChild(&html.Node{Type: html.TextNode, Data: rep.Filename})
	head.AppendChild(title)
	style := element(atom.Style)
	style.AppendChild(&html.Node{Type: html.TextNode, Data: previewStyle})
	head.AppendChild(style)
	root.AppendChild(head)

	body := element(atom.Body)
	body.AppendChild(element(atom.Iframe,
		html.Attribute{Key: "title", Val: rep.Filename},
		html.Attribute{Key: "src", Val: src},
		html.Attribute{Key: "onload", Val: "this.contentWindow.print();"},
	))
	root.AppendChild(body)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}
