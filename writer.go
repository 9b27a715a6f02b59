// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beagle

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"
)

// MarkerRecord bundles one marker's already-computed output fields
// -- allele frequencies, R² statistics, and per-sample calls -- ready
// for the writer to assemble into VCF bytes. Building these values
// from HMM posteriors and Gprobs statistics is the pipeline driver's
// job; the writer only assembles and splices.
type MarkerRecord struct {
	Marker Marker
	AF     []float64
	AR2    float64
	DR2    float64
	HWE    float64 // Hardy-Weinberg p-value, written only when the writer has the HWE test enabled
	Calls  []SampleCall
	Typed  bool // true if this reference marker is also a target (genotyped) marker
}

// Writer is the per-chromosome window writer: it appends per-window
// VCF and IBD/HBD records, buffering the IBD/HBD segments that cross
// the splice so they merge with the next window.
type Writer struct {
	vcfFile io.WriteCloser
	vcfZ    *pgzip.Writer
	vcfBuf  *bufio.Writer
	vcf     *VCFWriter

	ibdFile *os.File
	hbdFile *os.File
	ibdBuf  *bufio.Writer
	hbdBuf  *bufio.Writer
	ibd     *IbdBuffer

	gprobs bool
	closed bool
}

// NewWriter opens the block-gzip VCF output at vcfPath and the plain
// text IBD/HBD outputs at ibdPath/hbdPath, writing the VCF header
// immediately. All three files are truncated on open, then appended
// to by subsequent windows.
func NewWriter(vcfPath, ibdPath, hbdPath string, gprobs, impute, hwe bool, source, filedate string, samples Samples) (*Writer, error) {
	log.Infof("writing %s", vcfPath)
	vf, err := os.OpenFile(vcfPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return nil, newConfigError("opening VCF output %q: %v", vcfPath, err)
	}
	z := pgzip.NewWriter(vf)
	bw := bufio.NewWriterSize(z, 1<<20)
	vcf := NewVCFWriter(bw, gprobs, impute, hwe, source)
	if err := vcf.WriteHeader(filedate, samples); err != nil {
		return nil, newConfigError("writing VCF header: %v", err)
	}

	ibdF, err := os.OpenFile(ibdPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return nil, newConfigError("opening IBD output %q: %v", ibdPath, err)
	}
	hbdF, err := os.OpenFile(hbdPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return nil, newConfigError("opening HBD output %q: %v", hbdPath, err)
	}

	return &Writer{
		vcfFile: vf,
		vcfZ:    z,
		vcfBuf:  bw,
		vcf:     vcf,
		ibdFile: ibdF,
		hbdFile: hbdF,
		ibdBuf:  bufio.NewWriter(ibdF),
		hbdBuf:  bufio.NewWriter(hbdF),
		ibd:     NewIbdBuffer(),
		gprobs:  gprobs,
	}, nil
}

func (w *Writer) checkOpen() error {
	if w.closed {
		return ErrWriterClosed
	}
	return nil
}

// PrintGV appends VCF records for target markers in
// [cd.PrevTargetSplice(), cd.NextTargetSplice()), always with FORMAT
// GT:DS:GP, then flushes. records must be aligned 1:1 with
// cd.TargetMarkers() in that range.
func (w *Writer) PrintGV(cd *CurrentData, records []MarkerRecord) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	lo, hi := cd.PrevTargetSplice(), cd.NextTargetSplice()
	log.Debugf("writing gv records [%d,%d)", lo, hi)
	for i := lo; i < hi; i++ {
		rec := records[i]
		if err := w.vcf.WriteRecord(rec.Marker, rec.AF, rec.AR2, rec.DR2, rec.HWE, FormatGTDSGP, rec.Calls); err != nil {
			return err
		}
	}
	if err := w.vcfBuf.Flush(); err != nil {
		return err
	}
	log.Debugf("writing gv records [%d,%d) done", lo, hi)
	return nil
}

// Print appends records for reference markers in
// [cd.PrevSplice(), cd.NextSplice()). When imputed is false, markers
// not also present in the target set are skipped.
func (w *Writer) Print(cd *CurrentData, records []MarkerRecord, imputed bool) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	kind := FormatGTDS
	if w.gprobs {
		kind = FormatGTDSGP
	}
	lo, hi := cd.PrevSplice(), cd.NextSplice()
	log.Debugf("writing vcf records [%d,%d)", lo, hi)
	for i := lo; i < hi; i++ {
		rec := records[i]
		if !imputed && !rec.Typed {
			continue
		}
		if err := w.vcf.WriteRecord(rec.Marker, rec.AF, rec.AR2, rec.DR2, rec.HWE, kind, rec.Calls); err != nil {
			return err
		}
	}
	if err := w.vcfBuf.Flush(); err != nil {
		return err
	}
	log.Debugf("writing vcf records [%d,%d) done", lo, hi)
	return nil
}

// PrintIbd processes this window's raw IBD/HBD segments (keyed by
// haplotype pair, in target-marker-index coordinates), merges with
// any buffered segment, and writes emitted records to the IBD or HBD
// file depending on whether the two haplotypes share a sample.
func (w *Writer) PrintIbd(cd *CurrentData, segs map[HapPairKey]IbdSegment, samples Samples, chrom int) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	emitted := w.ibd.ProcessIbd(cd, segs)
	log.Debugf("writing ibd records: %d raw, %d emitted", len(segs), len(emitted))
	for _, e := range emitted {
		if err := w.writeIbdRecord(e.Key, e.Seg, samples, chrom); err != nil {
			return err
		}
	}
	if err := w.ibdBuf.Flush(); err != nil {
		return err
	}
	if err := w.hbdBuf.Flush(); err != nil {
		return err
	}
	log.Debugf("writing ibd records done")
	return nil
}

// FlushIbd writes any segments still buffered across the last window
// boundary as terminal records. Called when a chromosome ends, since
// no later window can arrive to extend or merge them.
func (w *Writer) FlushIbd(samples Samples, chrom int) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	drained := w.ibd.Drain()
	log.Debugf("flushing %d buffered ibd segments", len(drained))
	for _, e := range drained {
		if err := w.writeIbdRecord(e.Key, e.Seg, samples, chrom); err != nil {
			return err
		}
	}
	if err := w.ibdBuf.Flush(); err != nil {
		return err
	}
	if err := w.hbdBuf.Flush(); err != nil {
		return err
	}
	log.Debugf("flushing buffered ibd segments done")
	return nil
}

func (w *Writer) writeIbdRecord(key HapPairKey, seg IbdSegment, samples Samples, chrom int) error {
	rec := IbdRecord{
		Sample1: samples.ID(key.Hap1 / 2),
		Hap1:    key.Hap1%2 + 1,
		Sample2: samples.ID(key.Hap2 / 2),
		Hap2:    key.Hap2%2 + 1,
		Chrom:   chrom,
		Start:   seg.StartPos,
		End:     seg.EndPos,
		Score:   seg.Score,
	}
	dst := w.ibdBuf
	if key.IsHbd() {
		dst = w.hbdBuf
	}
	_, err := fmt.Fprintf(dst, "%s\t%d\t%s\t%d\t%d\t%d\t%d\t%s\n",
		rec.Sample1, rec.Hap1, rec.Sample2, rec.Hap2, rec.Chrom, rec.Start, rec.End, formatFixed(rec.Score, 2))
	return err
}

// Close flushes and closes all output files. After Close, all
// operations fail with ErrWriterClosed.
func (w *Writer) Close() error {
	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true
	log.Debugf("closing output files")
	if err := w.vcfBuf.Flush(); err != nil {
		return err
	}
	if err := w.vcfZ.Close(); err != nil {
		return err
	}
	if err := w.vcfFile.Close(); err != nil {
		return err
	}
	if err := w.ibdBuf.Flush(); err != nil {
		return err
	}
	if err := w.hbdBuf.Flush(); err != nil {
		return err
	}
	if err := w.ibdFile.Close(); err != nil {
		return err
	}
	if err := w.hbdFile.Close(); err != nil {
		return err
	}
	log.Infof("closing output files done")
	return nil
}
